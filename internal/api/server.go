package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mm_sim/internal/domain"
	"mm_sim/internal/engine"
	"mm_sim/internal/infra"
	"mm_sim/internal/service"

	"github.com/rs/cors"
)

const maxBodyBytes = 1 << 20

// Runner executes simulation requests (the RunService).
type Runner interface {
	Run(req service.RunRequest) (*engine.Result, error)
	Get(id string) (*engine.Result, error)
	GetAll() []*engine.Result
	Forget(id string)
}

// StreamHub is the websocket endpoint and its subscriber count.
type StreamHub interface {
	http.Handler
	Clients() int
}

// Server exposes runs, metrics, and the live stream over HTTP.
type Server struct {
	runner  Runner
	store   domain.RunRepository
	hub     StreamHub
	metrics *infra.Metrics
	logger  *slog.Logger
	origins []string

	mux     *http.ServeMux
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins sets the CORS origins (default "*").
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer wires the routes. store and hub may be nil.
func NewServer(runner Runner, store domain.RunRepository, hub StreamHub, metrics *infra.Metrics, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		store:   store,
		hub:     hub,
		metrics: metrics,
		logger:  slog.Default(),
		origins: []string{"*"},
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = infra.GlobalMetrics
	}

	s.setupRoutes()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(s.mux)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.mux.HandleFunc("POST /runs", s.handleCreateRun)
	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("DELETE /runs/{id}", s.handleDeleteRun)

	if s.hub != nil {
		s.mux.Handle("GET /ws", s.hub)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ==============================
// Handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.Clients()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"stream_clients": clients,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req service.RunRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if r.ContentLength != 0 {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	res, err := s.runner.Run(req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Run request failed", slog.Any("error", err))
		}
		respondError(w, status, "run failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		runs, err := s.store.ListRuns()
		if err != nil {
			s.logger.Error("List runs failed", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "list failed", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, runs)
		return
	}

	results := s.runner.GetAll()
	runs := make([]domain.RunRecord, 0, len(results))
	for _, res := range results {
		rec := res.ToRecord()
		rec.IntervalValues = nil
		runs = append(runs, *rec)
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Full result while it is still cached
	if res, err := s.runner.Get(id); err == nil {
		respondJSON(w, http.StatusOK, res)
		return
	}

	if s.store != nil {
		rec, err := s.store.GetRun(id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "lookup failed", err.Error())
			return
		}
		if rec != nil {
			respondJSON(w, http.StatusOK, rec)
			return
		}
	}

	respondError(w, http.StatusNotFound, "run not found", id)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "storage disabled", "")
		return
	}
	id := r.PathValue("id")
	if err := s.store.DeleteRun(id); err != nil {
		respondError(w, statusFor(err), "delete failed", err.Error())
		return
	}
	s.runner.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var cfgErr *domain.ConfigError
	var inErr *domain.InputError
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr), errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.As(err, &inErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}
