package strategy

import (
	"math"
	"math/rand/v2"

	"mm_sim/internal/domain"
)

// ewmaAlpha weights the latest mid change in the drift and variance estimates.
const ewmaAlpha = 0.2

// MonteCarloMaker forecasts the mid price by simulating random-walk paths whose
// drift and volatility are estimated from the observed mids. It leans its
// quotes toward the side the forecast favours.
type MonteCarloMaker struct {
	Paths     int
	Horizon   int
	Volume    int64
	Threshold float64 // relative forecast move needed to quote one-sided
	Window    int

	rng      *rand.Rand
	lastMid  float64
	drift    float64
	variance float64
	seen     int
}

// NewMonteCarloMaker creates a maker with a deterministic path generator.
func NewMonteCarloMaker(seed uint64) *MonteCarloMaker {
	return &MonteCarloMaker{
		Paths:     200,
		Horizon:   5,
		Volume:    20,
		Threshold: 0.001,
		Window:    5,
		rng:       rand.New(rand.NewPCG(seed, seed^0x94d049bb133111eb)),
	}
}

func (m *MonteCarloMaker) Name() string { return "montecarlo" }

func (m *MonteCarloMaker) Update(prevBid, prevAsk float64, holding int64, cash float64, t int) domain.QuoteProposal {
	mid := (prevBid + prevAsk) / 2
	m.observe(mid)

	buyVolume := m.Volume
	if prevAsk > 0 {
		buyVolume = min(buyVolume, int64(math.Floor(cash/prevAsk)))
	}
	sellVolume := min(m.Volume, holding)

	q := domain.QuoteProposal{
		BidPrice:  prevAsk,
		BidVolume: buyVolume,
		AskPrice:  prevBid,
		AskVolume: sellVolume,
		OrderType: domain.NewLimitOrderType(t, t+m.Window),
	}

	if m.seen < 2 || mid <= 0 {
		return q
	}

	move := (m.Forecast(mid) - mid) / mid
	switch {
	case move > m.Threshold:
		q.AskVolume = 0
	case move < -m.Threshold:
		q.BidVolume = 0
	}
	return q
}

// Forecast returns the mean terminal mid over the simulated paths.
func (m *MonteCarloMaker) Forecast(mid float64) float64 {
	if m.Paths <= 0 {
		return mid
	}
	sigma := math.Sqrt(m.variance)
	var total float64
	for p := 0; p < m.Paths; p++ {
		x := mid
		for h := 0; h < m.Horizon; h++ {
			x += m.drift + sigma*m.rng.NormFloat64()
		}
		total += x
	}
	return total / float64(m.Paths)
}

func (m *MonteCarloMaker) observe(mid float64) {
	if m.seen > 0 {
		r := mid - m.lastMid
		m.drift = ewmaAlpha*r + (1-ewmaAlpha)*m.drift
		dev := r - m.drift
		m.variance = ewmaAlpha*dev*dev + (1-ewmaAlpha)*m.variance
	}
	m.lastMid = mid
	m.seen++
}
