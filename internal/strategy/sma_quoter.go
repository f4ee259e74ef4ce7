package strategy

import (
	"mm_sim/internal/domain"
)

// SMAQuoter tracks short and long moving averages of the mid price.
// On a golden cross it buys at market, on a dead cross it sells at market,
// otherwise it rests limit quotes around the previous market.
// Uses a ring buffer so the hot path does not allocate.
type SMAQuoter struct {
	shortPeriod int
	longPeriod  int

	Volume int64
	Edge   float64 // fraction inside the market for resting quotes
	Window int

	// State (Ring Buffer)
	mids  []float64
	head  int     // Current write position
	count int     // Number of elements filled
	sum   float64 // Running sum over the long period

	prevShortSMA float64
	prevLongSMA  float64
}

// NewSMAQuoter creates a new instance.
func NewSMAQuoter(shortPeriod, longPeriod int) *SMAQuoter {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		panic("SMAQuoter: shortPeriod must be positive and less than longPeriod")
	}
	return &SMAQuoter{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		Volume:      10,
		Edge:        0.001,
		Window:      10,
		mids:        make([]float64, longPeriod), // Fixed size allocation
	}
}

func (s *SMAQuoter) Name() string { return "sma" }

func (s *SMAQuoter) Update(prevBid, prevAsk float64, holding int64, _ float64, t int) domain.QuoteProposal {
	mid := (prevBid + prevAsk) / 2

	// If full, head points to the oldest value
	if s.count == s.longPeriod {
		s.sum -= s.mids[s.head]
	}
	s.mids[s.head] = mid
	s.sum += mid
	s.head = (s.head + 1) % s.longPeriod
	if s.count < s.longPeriod {
		s.count++
	}

	rest := domain.QuoteProposal{
		BidPrice:  prevAsk * (1 - s.Edge),
		BidVolume: s.Volume,
		AskPrice:  prevBid * (1 + s.Edge),
		AskVolume: min(s.Volume, holding),
		OrderType: domain.NewLimitOrderType(t, t+s.Window),
	}

	if s.count < s.longPeriod {
		return rest
	}

	currLong := s.sum / float64(s.longPeriod)
	currShort := s.shortSMA()
	prevShort, prevLong := s.prevShortSMA, s.prevLongSMA
	s.prevShortSMA, s.prevLongSMA = currShort, currLong

	if prevShort == 0 || prevLong == 0 {
		return rest
	}

	// Golden Cross
	if prevShort <= prevLong && currShort > currLong {
		return domain.QuoteProposal{
			BidPrice:  prevAsk,
			BidVolume: s.Volume,
			AskPrice:  prevBid,
			OrderType: domain.NewMarketOrderType(t),
		}
	}

	// Dead Cross
	if prevShort >= prevLong && currShort < currLong {
		return domain.QuoteProposal{
			BidPrice:  prevAsk,
			AskPrice:  prevBid,
			AskVolume: s.Volume,
			OrderType: domain.NewMarketOrderType(t),
		}
	}

	return rest
}

// shortSMA walks backwards from the latest write.
func (s *SMAQuoter) shortSMA() float64 {
	var sum float64
	idx := s.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum += s.mids[idx]
	}
	return sum / float64(s.shortPeriod)
}
