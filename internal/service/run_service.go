package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"mm_sim/internal/domain"
	"mm_sim/internal/engine"
	"mm_sim/internal/event"
	"mm_sim/internal/infra"
	"mm_sim/internal/market"
	"mm_sim/internal/report"
	"mm_sim/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxRecent bounds the in-memory result cache.
const maxRecent = 100

// Publisher receives encoded stream messages (the websocket hub).
type Publisher interface {
	Broadcast(msg []byte)
}

// RunRequest overrides the configured simulation for one run. Zero values keep the config.
type RunRequest struct {
	Strategy       string           `json:"strategy,omitempty"`
	Params         map[string]any   `json:"params,omitempty"`
	Intervals      int              `json:"intervals,omitempty"`
	InitBid        float64          `json:"init_bid,omitempty"`
	InitAsk        float64          `json:"init_ask,omitempty"`
	InitialCash    *decimal.Decimal `json:"initial_cash,omitempty"`
	InitialHolding *int64           `json:"initial_holding,omitempty"`
	Seed           uint64           `json:"seed,omitempty"`
}

// RunService builds, runs, publishes, and stores simulations.
// Each run owns its own ledger and book, so runs may execute concurrently.
type RunService struct {
	cfg       *infra.Config
	repo      domain.RunRepository
	publisher Publisher
	metrics   *infra.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	results map[string]*engine.Result
}

// NewRunService creates a RunService. repo and publisher may be nil.
func NewRunService(cfg *infra.Config, repo domain.RunRepository, publisher Publisher, metrics *infra.Metrics, logger *slog.Logger) *RunService {
	if cfg == nil {
		cfg = infra.DefaultConfig()
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		results:   make(map[string]*engine.Result),
	}
}

// SimulationConfig converts the simulation section of the config.
func SimulationConfig(cfg *infra.Config) engine.Config {
	s := cfg.Simulation
	return engine.Config{
		Intervals:      s.Intervals,
		InitBid:        s.InitBid,
		InitAsk:        s.InitAsk,
		InitialCash:    s.InitialCash,
		InitialHolding: s.InitialHolding,
	}
}

// Run executes one simulation synchronously.
func (s *RunService) Run(req RunRequest) (*engine.Result, error) {
	simCfg := SimulationConfig(s.cfg)
	if req.Intervals != 0 {
		simCfg.Intervals = req.Intervals
	}
	if req.InitBid != 0 {
		simCfg.InitBid = req.InitBid
	}
	if req.InitAsk != 0 {
		simCfg.InitAsk = req.InitAsk
	}
	if req.InitialCash != nil {
		simCfg.InitialCash = *req.InitialCash
	}
	if req.InitialHolding != nil {
		simCfg.InitialHolding = *req.InitialHolding
	}

	name, params := s.cfg.Strategy.Name, s.cfg.Strategy.Params
	if req.Strategy != "" {
		name, params = req.Strategy, req.Params
	}

	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Simulation.Seed
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	strat, err := strategy.New(name, params, seed)
	if err != nil {
		return nil, err
	}

	m := s.cfg.Market
	gen := market.NewRandomWalk(simCfg.InitBid, simCfg.InitAsk,
		market.RandomWalkParams{Volatility: m.Volatility, Impact: m.Impact, Pull: m.Pull}, seed+1)

	var perturber domain.QuotePerturber = market.NoSlippage{}
	if m.Slippage {
		perturber = market.NewUniformSlippage(seed + 2)
	}

	runID := uuid.NewString()
	logger, logPath, closer, err := s.runLogger(runID)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	sim, err := engine.NewSimulation(simCfg, strat, gen,
		engine.WithRunID(runID),
		engine.WithLogger(logger),
		engine.WithMetrics(s.metrics),
		engine.WithPerturber(perturber),
		engine.WithObserver(s.publishInterval),
		engine.WithDumpPath(filepath.Join(s.cfg.Logging.Dir, runID+"_panic_dump.json")),
	)
	if err != nil {
		return nil, err
	}

	res, err := sim.Run()
	if err != nil {
		s.logger.Error("Simulation failed", slog.String("run_id", runID), slog.Any("error", err))
		return nil, err
	}

	s.publishSummary(res)
	s.remember(res)

	if s.repo != nil {
		rec := res.ToRecord()
		rec.LogPath = logPath
		if err := s.repo.SaveRun(rec); err != nil {
			s.logger.Error("Failed to persist run", slog.String("run_id", runID), slog.Any("error", err))
			return res, fmt.Errorf("persist run %s: %w", runID, err)
		}
	}

	s.logger.Info("Run finished",
		slog.String("run_id", res.ID),
		slog.String("strategy", res.Strategy),
		slog.String("mark_to_market", res.MarkToMarket.String()))
	return res, nil
}

// RunBatch runs requests with at most workers concurrent simulations.
// Results keep the request order; failed runs leave a nil slot and are joined into the error.
func (s *RunService) RunBatch(ctx context.Context, reqs []RunRequest, workers int) ([]*engine.Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*engine.Result, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req RunRequest) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			results[i], errs[i] = s.Run(req)
		}(i, req)
	}

	wg.Wait()
	return results, errors.Join(errs...)
}

// GetAll returns cached results, newest first
func (s *RunService) GetAll() []*engine.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*engine.Result, 0, len(s.results))
	for _, r := range s.results {
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	return result
}

// Get returns a cached result by ID
func (s *RunService) Get(id string) (*engine.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return r, nil
}

// Forget drops a result from the cache.
func (s *RunService) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
}

// ExportReports writes the ledger CSV and equity chart of a result into dir.
func ExportReports(res *engine.Result, dir string) (csvPath, chartPath string, err error) {
	chartPath, _, err = report.SaveEquityChart(dir, res.ID, res.Equity())
	if err != nil {
		return "", "", err
	}
	csvPath = filepath.Join(dir, res.ID+"_ledger.csv")
	if err := report.WriteLedgerCSV(csvPath, res.Ledger); err != nil {
		return "", "", err
	}
	return csvPath, chartPath, nil
}

func (s *RunService) remember(res *engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[res.ID] = res
	if len(s.results) <= maxRecent {
		return
	}
	var oldest *engine.Result
	for _, r := range s.results {
		if oldest == nil || r.StartedAt.Before(oldest.StartedAt) {
			oldest = r
		}
	}
	delete(s.results, oldest.ID)
}

func (s *RunService) runLogger(runID string) (*slog.Logger, string, io.Closer, error) {
	if !s.cfg.Logging.RunLog {
		return s.logger.With(slog.String("run_id", runID)), "", nil, nil
	}
	logger, path, closer, err := infra.NewRunLogger(s.cfg.Logging.Dir, time.Now(), infra.ParseLevel(s.cfg.Logging.Level))
	if err != nil {
		return nil, "", nil, fmt.Errorf("open run log: %w", err)
	}
	// runs started in the same second share a file
	return logger.With(slog.String("run_id", runID)), path, closer, nil
}

func (s *RunService) publishInterval(ev *event.IntervalEvent) {
	if s.publisher == nil {
		return
	}
	msg, err := event.Encode(event.TypeInterval, ev)
	if err != nil {
		s.logger.Warn("Failed to encode interval event", slog.Any("error", err))
		return
	}
	s.publisher.Broadcast(msg)
}

func (s *RunService) publishSummary(res *engine.Result) {
	if s.publisher == nil {
		return
	}
	msg, err := event.Encode(event.TypeSummary, event.SummaryEvent{
		RunID:        res.ID,
		Strategy:     res.Strategy,
		Intervals:    res.Intervals,
		FinalCash:    res.FinalCash,
		FinalHolding: res.FinalHolding,
		MarkToMarket: res.MarkToMarket,
	})
	if err != nil {
		s.logger.Warn("Failed to encode summary event", slog.Any("error", err))
		return
	}
	s.publisher.Broadcast(msg)
}
