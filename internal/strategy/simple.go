package strategy

import (
	"mm_sim/internal/domain"
)

// SimpleMarketMaker re-quotes the previous market prices with a fixed volume
// and a limit window starting at the current interval.
type SimpleMarketMaker struct {
	Volume int64
	Window int
}

// NewSimpleMarketMaker returns the example maker: 100 each side, valid for 100 intervals.
func NewSimpleMarketMaker() *SimpleMarketMaker {
	return &SimpleMarketMaker{Volume: 100, Window: 100}
}

func (s *SimpleMarketMaker) Name() string { return "simple" }

func (s *SimpleMarketMaker) Update(prevBid, prevAsk float64, _ int64, _ float64, t int) domain.QuoteProposal {
	return domain.QuoteProposal{
		BidPrice:  prevBid,
		BidVolume: s.Volume,
		AskPrice:  prevAsk,
		AskVolume: s.Volume,
		OrderType: domain.NewLimitOrderType(t, t+s.Window),
	}
}
