package event

import (
	"sync"

	"github.com/shopspring/decimal"
)

// intervalPool provides sync.Pool for per-interval event allocation.
//
// Usage:
//
//	ev := AcquireIntervalEvent()
//	ev.Interval = t
//	// ... hand to observers ...
//	ReleaseIntervalEvent(ev)  // observers must not retain ev
var intervalPool = sync.Pool{
	New: func() interface{} {
		return &IntervalEvent{}
	},
}

// AcquireIntervalEvent gets an IntervalEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireIntervalEvent() *IntervalEvent {
	return intervalPool.Get().(*IntervalEvent)
}

// ReleaseIntervalEvent returns an IntervalEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseIntervalEvent(ev *IntervalEvent) {
	if ev == nil {
		return
	}
	ev.RunID = ""
	ev.Interval = 0
	ev.OrderKind = ""
	ev.BidPrice = 0
	ev.BidVolume = 0
	ev.AskPrice = 0
	ev.AskVolume = 0
	ev.MarketBid = decimal.Zero
	ev.MarketAsk = decimal.Zero
	ev.Fills = 0
	ev.Profit = decimal.Zero
	ev.Cash = decimal.Zero
	ev.Holding = 0
	ev.Resting = 0

	intervalPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
func Warmup(batchSize int) {
	evs := make([]*IntervalEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireIntervalEvent())
	}
	for _, ev := range evs {
		ReleaseIntervalEvent(ev)
	}
}
