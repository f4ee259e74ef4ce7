package engine

import "mm_sim/internal/domain"

// Clamp identifies one sanitation rule that changed a proposal.
type Clamp int

const (
	ClampNegativeBidPrice Clamp = iota + 1
	ClampNegativeAskPrice
	ClampNegativeBidVolume
	ClampNegativeAskVolume
	ClampAskAboveHolding
)

// String returns the warning text for a clamp
func (c Clamp) String() string {
	switch c {
	case ClampNegativeBidPrice:
		return "Buy price is negative, setting volume to 0"
	case ClampNegativeAskPrice:
		return "Sell price is negative, setting volume to 0"
	case ClampNegativeBidVolume:
		return "Buying negative volume, setting volume to 0"
	case ClampNegativeAskVolume:
		return "Selling negative volume, setting volume to 0"
	case ClampAskAboveHolding:
		return "Selling more than holding, setting volume to holding"
	default:
		return "unknown clamp"
	}
}

// Sanitize clamps a strategy proposal into a legal instruction.
// Rules run in a fixed order; a Clamp is reported only when a rule changed a value.
// Cash is not checked here: execution caps buys against cash at fill time.
func Sanitize(p domain.QuoteProposal, holding int64) (domain.QuoteProposal, []Clamp) {
	var clamps []Clamp

	if p.BidPrice < 0 && p.BidVolume != 0 {
		p.BidVolume = 0
		clamps = append(clamps, ClampNegativeBidPrice)
	}
	if p.AskPrice < 0 && p.AskVolume != 0 {
		p.AskVolume = 0
		clamps = append(clamps, ClampNegativeAskPrice)
	}
	if p.BidVolume < 0 {
		p.BidVolume = 0
		clamps = append(clamps, ClampNegativeBidVolume)
	}
	if p.AskVolume < 0 {
		p.AskVolume = 0
		clamps = append(clamps, ClampNegativeAskVolume)
	}
	if limit := max(holding, 0); p.AskVolume > limit {
		p.AskVolume = limit
		clamps = append(clamps, ClampAskAboveHolding)
	}

	return p, clamps
}
