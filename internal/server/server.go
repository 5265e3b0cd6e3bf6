// Package server provides the HTTP API for ssamantle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/config"
	"github.com/ssamantle/ssamantle/internal/metrics"
	"github.com/ssamantle/ssamantle/internal/models"
	"github.com/ssamantle/ssamantle/internal/refresh"
	"github.com/ssamantle/ssamantle/internal/state"
	"github.com/ssamantle/ssamantle/internal/vectorsearch"
)

// RefreshFunc triggers a refresh run for the given date.
type RefreshFunc func(ctx context.Context, date string) (*refresh.Result, error)

// CacheReader is the read side of the durable daily cache used by the status
// endpoint. May be absent when the cache is not configured.
type CacheReader interface {
	ActiveDate(ctx context.Context) (string, error)
	TopK(ctx context.Context, date string) ([]models.Neighbor, bool, error)
}

// Server is the HTTP server for the ssamantle API. The vector store and cache
// reader may be nil; affected endpoints respond with a not-ready reason.
type Server struct {
	state      *state.Store
	store      vectorsearch.Store
	cache      CacheReader
	refreshNow RefreshFunc
	location   *time.Location
	config     *config.ServerConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	metricsH   http.Handler
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st *state.Store,
	store vectorsearch.Store,
	cacheReader CacheReader,
	refreshNow RefreshFunc,
	location *time.Location,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		state:      st,
		store:      store,
		cache:      cacheReader,
		refreshNow: refreshNow,
		location:   location,
		config:     cfg,
		logger:     logger,
	}
}

// WithMetrics attaches similarity counters and the /metrics handler.
func (s *Server) WithMetrics(m *metrics.Metrics, handler http.Handler) *Server {
	s.metrics = m
	s.metricsH = handler
	return s
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/today", s.handleToday)
	r.Post("/api/v1/similarity", s.handleSimilarity)
	r.Post("/api/v1/admin/refresh", s.handleAdminRefresh)
	r.Get("/api/v1/status", s.handleStatus)
	if s.metricsH != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsH)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
