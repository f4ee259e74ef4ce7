package market

import (
	"math"
	"math/rand/v2"
)

// minPrice keeps generated quotes strictly positive.
const minPrice = 0.01

// RandomWalkParams tunes the synthetic counterparty market.
type RandomWalkParams struct {
	// Volatility is the standard deviation of the per-interval mid shift.
	Volatility float64
	// Impact moves the mid by Impact * (bidVolume - askVolume) of the traded flow.
	Impact float64
	// Pull drags the mid toward the engine's quote, in [0, 1].
	Pull float64
}

// RandomWalk is a Gaussian random walk on the mid price that keeps the seed spread.
// It is deterministic for a given seed.
type RandomWalk struct {
	bid, ask float64
	params   RandomWalkParams
	rng      *rand.Rand
}

// NewRandomWalk creates a generator starting at the given quote.
func NewRandomWalk(bid, ask float64, params RandomWalkParams, seed uint64) *RandomWalk {
	return &RandomWalk{
		bid:    bid,
		ask:    ask,
		params: params,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NextQuote advances the walk by one interval.
func (w *RandomWalk) NextQuote(bid float64, bidVolume int64, ask float64, askVolume int64) (float64, float64) {
	shift := w.rng.NormFloat64()*w.params.Volatility + w.params.Impact*float64(bidVolume-askVolume)

	if w.params.Pull > 0 && bid > 0 && ask > 0 {
		mid := (w.bid + w.ask) / 2
		shift += w.params.Pull * ((bid+ask)/2 - mid)
	}

	w.bid += shift
	w.ask += shift

	if low := math.Min(w.bid, w.ask); low < minPrice {
		w.bid += minPrice - low
		w.ask += minPrice - low
	}

	w.bid = roundCents(w.bid)
	w.ask = roundCents(w.ask)
	return w.bid, w.ask
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
