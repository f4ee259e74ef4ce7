package strategy

import (
	"mm_sim/internal/domain"
)

// Strategy is the interface that all market-making strategies must implement.
// It is called synchronously by the Simulation once per interval.
type Strategy interface {
	// Name identifies the strategy in logs and stored runs.
	Name() string

	// Update receives the previous market bid/ask, the current holding and cash, and the
	// index of the current (not previous) interval. It returns the quotes for this interval.
	Update(prevBid, prevAsk float64, holding int64, cash float64, t int) domain.QuoteProposal
}
