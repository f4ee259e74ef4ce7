package app

import (
	"context"
	"log/slog"

	"mm_sim/internal/api"
	"mm_sim/internal/infra"
	"mm_sim/internal/infra/storage"
	"mm_sim/internal/infra/stream"
	"mm_sim/internal/service"
)

// DefaultConfigPath is where the CLI looks for its configuration.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Logger  *slog.Logger
	Storage *storage.Storage
	Hub     *stream.Hub
	Service *service.RunService
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, run service).
// withStream creates the websocket hub and publishes run events to it; the caller
// must then call StartHub so the hub drains its queue.
func (b *Bootstrap) Initialize(configPath string, withStream bool) error {
	slog.Info("🚀 Bootstrapping MM Sim...")

	// 1. Load Config
	cfg, err := infra.LoadConfigOrDefault(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	slog.Info("✅ Config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("path", configPath))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Stream hub (serve only) + run service
	var publisher service.Publisher
	if withStream {
		b.Hub = stream.NewHub(b.Logger)
		publisher = b.Hub
	}
	b.Service = service.NewRunService(cfg, store, publisher, infra.GlobalMetrics, b.Logger)
	slog.Info("✅ Run service ready", slog.String("strategy", cfg.Strategy.Name))

	return nil
}

// Server builds the HTTP API over the bootstrapped components.
func (b *Bootstrap) Server() *api.Server {
	var hub api.StreamHub
	if b.Hub != nil {
		hub = b.Hub
	}
	return api.NewServer(b.Service, b.Storage, hub, infra.GlobalMetrics,
		api.WithLogger(b.Logger),
		api.WithAllowedOrigins(b.Config.Server.AllowedOrigins),
	)
}

// StartHub runs the stream hub until ctx is cancelled.
func (b *Bootstrap) StartHub(ctx context.Context) {
	if b.Hub == nil {
		return
	}
	go b.Hub.Run(ctx)
}

// Close releases the database.
func (b *Bootstrap) Close() {
	if b.Storage == nil {
		return
	}
	if err := b.Storage.Close(); err != nil {
		slog.Error("Failed to close storage", slog.Any("error", err))
	}
}
