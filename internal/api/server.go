package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JoanathanPS/alienbuster/internal/cluster"
	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/fusion"
	"github.com/JoanathanPS/alienbuster/internal/review"
	"github.com/JoanathanPS/alienbuster/internal/triage"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg *domain.Config, repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *fusion.Scorer, pipeline Pipeline, reviews *review.Service, clusters *cluster.Engine, rules *triage.Engine, version string) *Server {
	handler := NewHandler(cfg, repo, cache, bus, scorer, pipeline, reviews, clusters, rules, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Report ingestion and retrieval
	router.Post("/reports", handler.CreateReport)
	router.Get("/reports/{id}", handler.GetReport)
	router.Get("/reports/nearby", handler.NearbyReports)

	// What-if scoring without persistence
	router.Post("/fusion/preview", handler.FusionPreview)

	// Expert review
	router.Get("/review/queue", handler.ReviewQueue)
	router.Post("/reports/{id}/review", handler.ReviewReport)
	router.Get("/reports/{id}/decisions", handler.ListDecisions)

	// Outbreaks
	router.Get("/outbreaks", handler.ListOutbreaks)
	router.Get("/outbreaks/{id}", handler.GetOutbreak)
	router.Post("/outbreaks/recompute", handler.RecomputeOutbreaks)
	router.Post("/outbreaks/{id}/resolve", handler.ResolveOutbreak)

	// GeoJSON map surfaces
	router.Get("/geo/reports", handler.GeoReports)
	router.Get("/geo/outbreaks", handler.GeoOutbreaks)

	// Triage rule management
	router.Get("/triage/rules", handler.ListTriageRules)
	router.Post("/triage/rules", handler.CreateTriageRule)
	router.Post("/triage/rules/reload", handler.ReloadTriageRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg.Server,
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
