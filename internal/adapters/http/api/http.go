// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/songlab/internal/domain/dedupe"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Evaluate scores a result synchronously.
	Evaluate(res model.AnalysisResult) model.Report

	// Enqueue pushes a submission for async scoring. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, s model.Submission) bool

	// Get returns a stored report or an error wrapping a not-found kind.
	Get(ctx context.Context, id string) (model.Report, error)

	// Recent returns up to n stored reports, newest first.
	Recent(ctx context.Context, n int) ([]model.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scoreHandler   *ScoreHandler
	resultsHandler *ResultsHandler
	monitorHandler *MonitorHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Current().Named("api")
	}
	mon := NewMonitorHandler(cfg.monitor, cfg.logger)
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider, mon),
		scoreHandler:   NewScoreHandler(deps),
		resultsHandler: NewResultsHandler(deps, cfg.maxRecentLimit),
		monitorHandler: mon,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("/v1/results", MetricsMiddleware(s.resultsHandler.HandleResults, "results"))
	mux.HandleFunc("/v1/results/", MetricsMiddleware(s.resultsHandler.HandleGetResult, "result"))
	mux.HandleFunc("/v1/monitor", MetricsMiddleware(s.monitorHandler.HandleMonitor, "monitor"))
}

// Monitor exposes the websocket handler so callers can inspect or drain it.
func (s *Server) Monitor() *MonitorHandler {
	return s.monitorHandler
}

type ackResponse struct {
	Status    string `json:"status"`
	ResultID  string `json:"result_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
