// Package api provides the HTTP control API of the map client.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prproute/mapclient/internal/api/handler"
	"github.com/prproute/mapclient/internal/api/middleware"
	"github.com/prproute/mapclient/internal/provider/resilience"
	"github.com/prproute/mapclient/internal/session"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Runner   handler.Runner
	Session  *session.Orchestrator
	Registry *resilience.Registry
	Bounds   *session.Bounds

	// RateLimitPerMinute caps session requests per client IP. Zero disables it.
	RateLimitPerMinute int
	RequireTLS         bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mapclient"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Runner:    cfg.Runner,
		Session:   cfg.Session,
	})
	sessionHandler := handler.NewSessionHandler(handler.SessionHandlerConfig{
		Runner:  cfg.Runner,
		Session: cfg.Session,
		Bounds:  cfg.Bounds,
		Logger:  cfg.Logger,
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/session", func(r chi.Router) {
			if cfg.RateLimitPerMinute > 0 {
				r.Use(middleware.RateLimitByIP(middleware.PerMinute(cfg.RateLimitPerMinute)))
			}
			r.Use(middleware.RequireJSON)

			r.Get("/", sessionHandler.GetSession)
			r.Post("/clicks", sessionHandler.Click)
			r.Post("/picks:confirm", sessionHandler.ConfirmPick)
			r.Put("/sliders/{index}", sessionHandler.SetSlider)
			r.Post("/queries", sessionHandler.SubmitQuery)
			r.Get("/route", sessionHandler.GetRoute)
		})
	})

	return r
}
