package market

import "math/rand/v2"

// Default slippage band for trading at market, as a fraction of the quote.
const (
	SlippageDown = 1.0 / 20
	SlippageUp   = 1.0 / 30
)

// UniformSlippage perturbs each side of the quote independently by a uniform
// draw in [-q*Down, +q*Up].
type UniformSlippage struct {
	Down, Up float64
	rng      *rand.Rand
}

// NewUniformSlippage creates the default perturber.
func NewUniformSlippage(seed uint64) *UniformSlippage {
	return &UniformSlippage{
		Down: SlippageDown,
		Up:   SlippageUp,
		rng:  rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5)),
	}
}

// Perturb returns the perturbed bid and ask.
func (s *UniformSlippage) Perturb(bid, ask float64) (float64, float64) {
	return s.shift(bid), s.shift(ask)
}

func (s *UniformSlippage) shift(q float64) float64 {
	u := -s.Down + s.rng.Float64()*(s.Down+s.Up)
	return roundCents(q + q*u)
}

// NoSlippage leaves quotes untouched.
type NoSlippage struct{}

// Perturb returns the quote unchanged.
func (NoSlippage) Perturb(bid, ask float64) (float64, float64) { return bid, ask }
