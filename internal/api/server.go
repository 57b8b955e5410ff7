package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/idtrace/idtrace/internal/advisor"
	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/scoring"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, scanCfg domain.ScanConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, aggregator *intel.Aggregator, engine *scoring.Engine, adv *advisor.Advisor, profileTTL time.Duration, version string) *Server {
	handler := NewHandler(repo, cache, bus, aggregator, engine, adv, profileTTL, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (never rate limited)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Scan endpoint, rate limited per client IP
	router.Route("/scan", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cache, scanCfg.RateLimitPerMinute))
		r.Get("/", handler.Scan)
	})

	// Monitor management
	router.Route("/monitors", func(r chi.Router) {
		r.Post("/", handler.CreateMonitor)
		r.Get("/", handler.ListMonitors)
		r.Get("/{id}", handler.GetMonitor)
		r.Delete("/{id}", handler.DeleteMonitor)
		r.Post("/{id}/check", handler.CheckMonitor)
		r.Get("/{id}/history", handler.MonitorHistory)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
