// Package server exposes the tracking engine to external collaborators over
// HTTP: a WebSocket follow endpoint for speech-source/display clients, plus
// health, stats, and Prometheus metrics endpoints.
//
// Each follow connection owns its own tracking session (script, cursor,
// queue); the server itself only holds shared observability state and the
// session defaults from configuration.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cuefollow/internal/config"
	"github.com/MrWong99/cuefollow/internal/observe"
)

// shutdownTimeout bounds graceful HTTP shutdown after the context is
// cancelled.
const shutdownTimeout = 10 * time.Second

// Server hosts the HTTP surface of cuefollow.
type Server struct {
	metrics *observe.Metrics
	stats   *observe.TrackerStats

	mu  sync.RWMutex
	cfg *config.Config

	sessions atomic.Int64
}

// New creates a Server with the given configuration and observability
// sinks. metrics and stats may be nil, in which case the corresponding
// recording is skipped.
func New(cfg *config.Config, metrics *observe.Metrics, stats *observe.TrackerStats) *Server {
	return &Server{
		cfg:     cfg,
		metrics: metrics,
		stats:   stats,
	}
}

// ApplyConfig swaps in a newly loaded configuration. Session defaults take
// effect for connections established afterwards; live sessions keep theirs.
// Intended as the onChange callback of a [config.Watcher].
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// currentConfig returns the active configuration.
func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Handler returns the full route table:
//
//	GET /v1/follow — WebSocket tracking session
//	GET /healthz   — liveness probe
//	GET /readyz    — readiness probe
//	GET /statsz    — JSON stats snapshot
//	GET /metrics   — Prometheus scrape endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/follow", s.handleFollow)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /statsz", s.handleStatsz)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.currentConfig()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server: listening", "addr", srv.Addr, "tls", cfg.Server.TLS != nil)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handleHealthz is a liveness probe. A running process that can serve HTTP
// is considered alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz is a readiness probe. The server has no external
// dependencies, so readiness equals liveness; the active session count is
// included for operators.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Load(),
	})
}

// handleStatsz serves a JSON snapshot of tracking statistics.
func (s *Server) handleStatsz(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, observe.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
