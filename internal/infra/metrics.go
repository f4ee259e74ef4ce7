package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	intervalsProcessed atomic.Uint64
	marketFills        atomic.Uint64
	limitFills         atomic.Uint64
	ordersExpired      atomic.Uint64
	clampsApplied      atomic.Uint64
	runsCompleted      atomic.Uint64
	errorsTotal        atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeRuns atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordInterval records one processed interval with latency.
func (m *Metrics) RecordInterval(latencyNs int64) {
	m.intervalsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordMarketFills adds n market-order fills.
func (m *Metrics) RecordMarketFills(n int) {
	m.marketFills.Add(uint64(n))
}

// RecordLimitFills adds n limit-order fills.
func (m *Metrics) RecordLimitFills(n int) {
	m.limitFills.Add(uint64(n))
}

// RecordExpired adds n expired limit orders.
func (m *Metrics) RecordExpired(n int) {
	m.ordersExpired.Add(uint64(n))
}

// RecordClamps adds n sanitizer clamps.
func (m *Metrics) RecordClamps(n int) {
	m.clampsApplied.Add(uint64(n))
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RunStarted increments the active run gauge.
func (m *Metrics) RunStarted() {
	m.activeRuns.Add(1)
}

// RunFinished decrements the active run gauge and counts completed runs.
func (m *Metrics) RunFinished(ok bool) {
	m.activeRuns.Add(-1)
	if ok {
		m.runsCompleted.Add(1)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	IntervalsProcessed uint64    `json:"intervals_processed"`
	MarketFills        uint64    `json:"market_fills"`
	LimitFills         uint64    `json:"limit_fills"`
	OrdersExpired      uint64    `json:"orders_expired"`
	ClampsApplied      uint64    `json:"clamps_applied"`
	RunsCompleted      uint64    `json:"runs_completed"`
	ErrorsTotal        uint64    `json:"errors_total"`
	AvgLatencyNs       int64     `json:"avg_latency_ns"`
	ActiveRuns         int32     `json:"active_runs"`
	Timestamp          time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		IntervalsProcessed: m.intervalsProcessed.Load(),
		MarketFills:        m.marketFills.Load(),
		LimitFills:         m.limitFills.Load(),
		OrdersExpired:      m.ordersExpired.Load(),
		ClampsApplied:      m.clampsApplied.Load(),
		RunsCompleted:      m.runsCompleted.Load(),
		ErrorsTotal:        m.errorsTotal.Load(),
		AvgLatencyNs:       avgLatency,
		ActiveRuns:         m.activeRuns.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.intervalsProcessed.Store(0)
	m.marketFills.Store(0)
	m.limitFills.Store(0)
	m.ordersExpired.Store(0)
	m.clampsApplied.Store(0)
	m.runsCompleted.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeRuns.Store(0)
}
