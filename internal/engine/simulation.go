package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mm_sim/internal/domain"
	"mm_sim/internal/event"
	"mm_sim/internal/execution"
	"mm_sim/internal/infra"
	"mm_sim/internal/market"
	"mm_sim/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds the parameters of one simulation run.
type Config struct {
	Intervals      int
	InitBid        float64
	InitAsk        float64
	InitialCash    decimal.Decimal
	InitialHolding int64
}

// MaxIntervals bounds a single run; the ledger preallocates one row per interval.
const MaxIntervals = 100_000

// DefaultConfig returns 60 intervals starting at 100/100 with 10000 cash.
func DefaultConfig() Config {
	return Config{
		Intervals:   60,
		InitBid:     100,
		InitAsk:     100,
		InitialCash: decimal.NewFromInt(10000),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Intervals <= 0 {
		return &domain.ConfigError{Field: "intervals", Err: fmt.Errorf("must be positive, got %d", c.Intervals)}
	}
	if c.Intervals > MaxIntervals {
		return &domain.ConfigError{Field: "intervals", Err: fmt.Errorf("must not exceed %d, got %d", MaxIntervals, c.Intervals)}
	}
	if !domain.IsFinite(c.InitBid) {
		return &domain.ConfigError{Field: "init_bid", Err: domain.ErrNonFinite}
	}
	if !domain.IsFinite(c.InitAsk) {
		return &domain.ConfigError{Field: "init_ask", Err: domain.ErrNonFinite}
	}
	if c.InitialCash.IsNegative() {
		return &domain.ConfigError{Field: "initial_cash", Err: fmt.Errorf("must not be negative, got %s", c.InitialCash)}
	}
	if c.InitialHolding < 0 {
		return &domain.ConfigError{Field: "initial_holding", Err: fmt.Errorf("must not be negative, got %d", c.InitialHolding)}
	}
	return nil
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithMetrics sets the metrics sink (default infra.GlobalMetrics).
func WithMetrics(m *infra.Metrics) Option {
	return func(s *Simulation) { s.metrics = m }
}

// WithPerturber sets the slippage applied to market orders.
func WithPerturber(p domain.QuotePerturber) Option {
	return func(s *Simulation) { s.perturber = p }
}

// WithObserver registers a callback for each closed interval.
// The event is pooled and must not be retained after the callback returns.
func WithObserver(fn func(*event.IntervalEvent)) Option {
	return func(s *Simulation) { s.observer = fn }
}

// WithDumpPath sets where the state dump is written on an invariant violation.
func WithDumpPath(path string) Option {
	return func(s *Simulation) { s.dumpPath = path }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(s *Simulation) { s.runID = id }
}

// Simulation drives one strategy against one market generator for a fixed horizon.
// Each Run starts from a fresh ledger and limit book. A run is single-threaded.
type Simulation struct {
	cfg       Config
	strat     strategy.Strategy
	gen       domain.MarketGenerator
	perturber domain.QuotePerturber
	logger    *slog.Logger
	metrics   *infra.Metrics
	observer  func(*event.IntervalEvent)
	dumpPath  string
	runID     string

	// per-run state
	ledger   *domain.Ledger
	exec     *execution.PaperExecution
	interval int
	clamps   int
}

// NewSimulation validates the configuration and wires the simulation.
func NewSimulation(cfg Config, strat strategy.Strategy, gen domain.MarketGenerator, opts ...Option) (*Simulation, error) {
	if strat == nil {
		return nil, &domain.ConfigError{Field: "strategy", Err: errors.New("strategy is nil")}
	}
	if gen == nil {
		return nil, &domain.ConfigError{Field: "market", Err: errors.New("market generator is nil")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:      cfg,
		strat:    strat,
		gen:      gen,
		logger:   slog.Default(),
		metrics:  infra.GlobalMetrics,
		dumpPath: "panic_dump.json",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.perturber == nil {
		s.perturber = market.NewUniformSlippage(uint64(time.Now().UnixNano()))
	}
	return s, nil
}

// LedgerRow is the per-interval account line.
type LedgerRow struct {
	Interval     int             `json:"interval"`
	OrderKind    string          `json:"order_kind"`
	BidPrice     float64         `json:"bid_price"`
	BidVolume    int64           `json:"bid_volume"`
	AskPrice     float64         `json:"ask_price"`
	AskVolume    int64           `json:"ask_volume"`
	MarketBid    decimal.Decimal `json:"market_bid"`
	MarketAsk    decimal.Decimal `json:"market_ask"`
	MarketFlow   decimal.Decimal `json:"market_flow"`
	LimitFlow    decimal.Decimal `json:"limit_flow"`
	Profit       decimal.Decimal `json:"profit"`
	Cash         decimal.Decimal `json:"cash"`
	Holding      int64           `json:"holding"`
	MarkToMarket decimal.Decimal `json:"mark_to_market"`
	Fills        int             `json:"fills"`
	Resting      int             `json:"resting"`
}

// Result is the outcome of a completed run.
type Result struct {
	ID            string            `json:"id"`
	Strategy      string            `json:"strategy"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Intervals     int               `json:"intervals"`
	InitialCash   decimal.Decimal   `json:"initial_cash"`
	FinalCash     decimal.Decimal   `json:"final_cash"`
	FinalHolding  int64             `json:"final_holding"`
	LastMarketBid decimal.Decimal   `json:"last_market_bid"`
	LastMarketAsk decimal.Decimal   `json:"last_market_ask"`
	MarkToMarket  decimal.Decimal   `json:"mark_to_market"`
	Profit        []decimal.Decimal `json:"profit"`
	MarketBid     []decimal.Decimal `json:"market_bid"`
	MarketAsk     []decimal.Decimal `json:"market_ask"`
	Ledger        []LedgerRow       `json:"ledger"`
	Fills         []execution.Fill  `json:"fills"`
	Warnings      int               `json:"warnings"`
	Clamps        int               `json:"clamps"`
	Expired       int               `json:"expired"`
}

// Equity returns the mark-to-market value after each interval.
func (r *Result) Equity() []float64 {
	out := make([]float64, len(r.Ledger))
	for i, row := range r.Ledger {
		out[i] = row.MarkToMarket.InexactFloat64()
	}
	return out
}

// ToRecord converts the result into its persisted form.
func (r *Result) ToRecord() *domain.RunRecord {
	rec := &domain.RunRecord{
		ID:             r.ID,
		Strategy:       r.Strategy,
		Intervals:      r.Intervals,
		InitialCash:    r.InitialCash,
		FinalCash:      r.FinalCash,
		FinalHolding:   r.FinalHolding,
		LastMarketBid:  r.LastMarketBid,
		LastMarketAsk:  r.LastMarketAsk,
		MarkToMarket:   r.MarkToMarket,
		Warnings:       r.Warnings + r.Clamps,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		IntervalValues: make([]domain.IntervalRecord, 0, len(r.Ledger)),
	}
	for _, row := range r.Ledger {
		rec.IntervalValues = append(rec.IntervalValues, domain.IntervalRecord{
			RunID:     r.ID,
			Interval:  row.Interval,
			OrderKind: row.OrderKind,
			MarketBid: row.MarketBid,
			MarketAsk: row.MarketAsk,
			Profit:    row.Profit,
			Cash:      row.Cash,
			Holding:   row.Holding,
		})
	}
	return rec
}

// Run executes the configured number of intervals and returns the result.
// A non-finite price from the strategy or market aborts the run with a fatal
// *domain.InputError. A ledger invariant violation dumps state and panics.
func (s *Simulation) Run() (res *Result, err error) {
	runID := s.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := time.Now()

	s.ledger = domain.NewLedger(s.cfg.InitialCash, domain.NewQuote(s.cfg.InitBid, s.cfg.InitAsk))
	s.exec = execution.NewPaperExecution(s.ledger, s.logger)
	s.interval = 0
	s.clamps = 0
	if s.cfg.InitialHolding > 0 {
		s.exec.Deposit(s.cfg.InitialHolding)
	}

	s.metrics.RunStarted()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RunFinished(false)
			s.metrics.RecordError()
			s.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r), slog.Int("interval", s.interval))
			s.DumpState(s.dumpPath)
			// Halt after dump.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
		s.metrics.RunFinished(err == nil)
	}()

	s.logger.Info("Run started",
		slog.String("run_id", runID),
		slog.String("strategy", s.strat.Name()),
		slog.Int("intervals", s.cfg.Intervals),
		slog.Float64("init_bid", s.cfg.InitBid),
		slog.Float64("init_ask", s.cfg.InitAsk),
		slog.String("initial_cash", s.cfg.InitialCash.String()),
		slog.Int64("initial_holding", s.cfg.InitialHolding))

	prevBid, prevAsk := s.cfg.InitBid, s.cfg.InitAsk
	rows := make([]LedgerRow, 0, s.cfg.Intervals)

	for t := 0; t < s.cfg.Intervals; t++ {
		s.interval = t
		row, nextBid, nextAsk, stepErr := s.step(runID, t, prevBid, prevAsk)
		if stepErr != nil {
			s.metrics.RecordError()
			s.logger.Error("Run aborted", slog.Int("interval", t), slog.Any("error", stepErr))
			return nil, fmt.Errorf("interval %d: %w", t, stepErr)
		}
		rows = append(rows, row)
		prevBid, prevAsk = nextBid, nextAsk
	}

	last := s.ledger.LastQuote()
	res = &Result{
		ID:            runID,
		Strategy:      s.strat.Name(),
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Intervals:     s.cfg.Intervals,
		InitialCash:   s.ledger.InitialCash(),
		FinalCash:     s.ledger.Cash(),
		FinalHolding:  s.ledger.Holding(),
		LastMarketBid: last.Bid,
		LastMarketAsk: last.Ask,
		MarkToMarket:  s.ledger.MarkToMarket(),
		Profit:        s.ledger.Profit(),
		MarketBid:     s.ledger.MarketBids(),
		MarketAsk:     s.ledger.MarketAsks(),
		Ledger:        rows,
		Fills:         s.exec.GetFills(),
		Warnings:      s.exec.Warnings(),
		Clamps:        s.clamps,
		Expired:       s.exec.Expired(),
	}

	s.logger.Info("Run complete",
		slog.String("run_id", runID),
		slog.String("final_cash", res.FinalCash.String()),
		slog.Int64("final_holding", res.FinalHolding),
		slog.String("last_market_bid", res.LastMarketBid.String()),
		slog.String("last_market_ask", res.LastMarketAsk.String()),
		slog.String("mark_to_market", res.MarkToMarket.String()),
		slog.Int("fills", len(res.Fills)),
		slog.Int("warnings", res.Warnings+res.Clamps))

	return res, nil
}

// step runs one interval: quote, sanitize, execute, advance the market, sweep, close.
func (s *Simulation) step(runID string, t int, prevBid, prevAsk float64) (LedgerRow, float64, float64, error) {
	begin := time.Now()
	holding := s.ledger.Holding()
	cash := s.ledger.Cash().InexactFloat64()

	// 1. Strategy
	proposal := s.strat.Update(prevBid, prevAsk, holding, cash, t)
	if err := proposal.Validate("strategy"); err != nil {
		return LedgerRow{}, 0, 0, err
	}

	// 2. Sanitize
	q, clamps := Sanitize(proposal, holding)
	for _, c := range clamps {
		s.logger.Warn(c.String(), slog.Int("interval", t))
	}
	s.clamps += len(clamps)
	s.metrics.RecordClamps(len(clamps))

	fillsBefore := s.exec.FillCount()
	expiredBefore := s.exec.Expired()

	// 3. Execute and advance the market
	marketFlow := decimal.Zero
	var nextBid, nextAsk float64
	if q.OrderType.IsMarket() {
		bid, ask := s.perturber.Perturb(prevBid, prevAsk)
		if !domain.IsFinite(bid) {
			return LedgerRow{}, 0, 0, domain.NewInputError("slippage", "bid", bid)
		}
		if !domain.IsFinite(ask) {
			return LedgerRow{}, 0, 0, domain.NewInputError("slippage", "ask", ask)
		}
		marketFlow = s.exec.ExecuteMarket(t, domain.NewQuote(bid, ask), q.BidVolume, q.AskVolume)
		nextBid, nextAsk = s.gen.NextQuote(bid, q.BidVolume, ask, q.AskVolume)
	} else {
		s.exec.PlaceLimit(t, q, q.OrderType)
		nextBid, nextAsk = s.gen.NextQuote(q.BidPrice, q.BidVolume, q.AskPrice, q.AskVolume)
	}

	if !domain.IsFinite(nextBid) {
		return LedgerRow{}, 0, 0, domain.NewInputError("market", "bid", nextBid)
	}
	if !domain.IsFinite(nextAsk) {
		return LedgerRow{}, 0, 0, domain.NewInputError("market", "ask", nextAsk)
	}
	next := domain.NewQuote(nextBid, nextAsk)

	// 4. Sweep resting orders against the new quote
	limitFlow := s.exec.Sweep(t, next)

	// 5. Close the interval
	profit := s.ledger.CloseInterval(next)
	s.ledger.VerifyInvariant()

	fills := s.exec.FillsSince(fillsBefore)
	var marketFills, limitFills int
	for _, f := range fills {
		if f.Kind == domain.OrderKindMarket {
			marketFills++
		} else {
			limitFills++
		}
	}
	s.metrics.RecordMarketFills(marketFills)
	s.metrics.RecordLimitFills(limitFills)
	s.metrics.RecordExpired(s.exec.Expired() - expiredBefore)

	row := LedgerRow{
		Interval:     t,
		OrderKind:    q.OrderType.Kind().String(),
		BidPrice:     q.BidPrice,
		BidVolume:    q.BidVolume,
		AskPrice:     q.AskPrice,
		AskVolume:    q.AskVolume,
		MarketBid:    next.Bid,
		MarketAsk:    next.Ask,
		MarketFlow:   marketFlow,
		LimitFlow:    limitFlow,
		Profit:       profit,
		Cash:         s.ledger.Cash(),
		Holding:      s.ledger.Holding(),
		MarkToMarket: s.ledger.MarkToMarket(),
		Fills:        len(fills),
		Resting:      s.exec.Book().Len(),
	}

	s.logger.Info("INTERVAL",
		slog.Int("interval", t),
		slog.String("order", q.OrderType.String()),
		slog.Float64("bid_price", q.BidPrice),
		slog.Int64("bid_volume", q.BidVolume),
		slog.Float64("ask_price", q.AskPrice),
		slog.Int64("ask_volume", q.AskVolume),
		slog.String("market_bid", row.MarketBid.String()),
		slog.String("market_ask", row.MarketAsk.String()),
		slog.String("profit", row.Profit.String()),
		slog.String("cash", row.Cash.String()),
		slog.Int64("holding", row.Holding))

	s.emit(runID, row)
	s.metrics.RecordInterval(time.Since(begin).Nanoseconds())

	return row, nextBid, nextAsk, nil
}

func (s *Simulation) emit(runID string, row LedgerRow) {
	if s.observer == nil {
		return
	}
	ev := event.AcquireIntervalEvent()
	ev.RunID = runID
	ev.Interval = row.Interval
	ev.OrderKind = row.OrderKind
	ev.BidPrice = row.BidPrice
	ev.BidVolume = row.BidVolume
	ev.AskPrice = row.AskPrice
	ev.AskVolume = row.AskVolume
	ev.MarketBid = row.MarketBid
	ev.MarketAsk = row.MarketAsk
	ev.Fills = row.Fills
	ev.Profit = row.Profit
	ev.Cash = row.Cash
	ev.Holding = row.Holding
	ev.Resting = row.Resting
	s.observer(ev)
	event.ReleaseIntervalEvent(ev)
}

// DumpState writes the run state to a file (for post-mortem).
func (s *Simulation) DumpState(filename string) {
	s.logger.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		Interval int                    `json:"interval"`
		Strategy string                 `json:"strategy"`
		Ledger   *domain.LedgerSnapshot `json:"ledger,omitempty"`
		Resting  []domain.RestingOrder  `json:"resting,omitempty"`
		Fills    []execution.Fill       `json:"fills,omitempty"`
	}{
		Interval: s.interval,
		Strategy: s.strat.Name(),
	}
	if s.ledger != nil {
		snap := s.ledger.Snapshot()
		data.Ledger = &snap
	}
	if s.exec != nil {
		data.Resting = s.exec.Book().Orders()
		data.Fills = s.exec.GetFills()
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		s.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}
