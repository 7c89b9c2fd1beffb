package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/bizledger/internal/adapter/http/handler"
	"github.com/iho/bizledger/internal/adapter/http/middleware"
	"github.com/iho/bizledger/internal/infrastructure/metrics"
	"github.com/iho/bizledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntryHandler      *handler.EntryHandler
	PlanHandler       *handler.PlanHandler
	ReportHandler     *handler.ReportHandler
	SessionHandler    *handler.SessionHandler
	HealthHandler     *handler.HealthHandler
	SessionMiddleware *middleware.SessionMiddleware
	IdempotencyStore  usecase.IdempotencyStore
	IdempotencyTTL    time.Duration
	RateLimiter       *middleware.RateLimiter
	Metrics           *metrics.Metrics
	MetricsHandler    http.Handler
	Logger            zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", cfg.ReportHandler.Categories)

		r.Group(func(r chi.Router) {
			sessionRoutes(r, cfg)
		})
	})

	return r
}

func sessionRoutes(r chi.Router, cfg RouterConfig) {
	if cfg.SessionMiddleware != nil {
		r.Use(cfg.SessionMiddleware.Wrap)
	}
	// Idempotency middleware for mutating requests
	if cfg.IdempotencyStore != nil {
		r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
	}

	// Entries
	r.Route("/entries", func(r chi.Router) {
		r.Post("/", cfg.EntryHandler.Create)
		r.Get("/", cfg.EntryHandler.List)
		r.Get("/{id}", cfg.EntryHandler.Get)
		r.Patch("/{id}", cfg.EntryHandler.Update)
		r.Delete("/{id}", cfg.EntryHandler.Delete)
		r.Put("/{id}/status", cfg.EntryHandler.SetStatus)
		r.Get("/{id}/pending", cfg.EntryHandler.Pending)
	})

	// Installment plans
	r.Get("/plans/{planId}", cfg.PlanHandler.Get)
	r.Put("/plans/{planId}", cfg.PlanHandler.Edit)

	r.Get("/summary", cfg.ReportHandler.Summary)
	r.Get("/growth", cfg.ReportHandler.Growth)
	r.Get("/report", cfg.ReportHandler.Report)

	r.Get("/session/failures", cfg.SessionHandler.Failures)
	r.Delete("/session", cfg.SessionHandler.Close)
}
