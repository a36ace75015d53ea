package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/covid-dashboard/internal/middleware"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

// RouterConfig holds the middleware settings of the router.
type RouterConfig struct {
	Logger            *logger.Logger
	Session           middleware.SessionOptions
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter wires every route of the dashboard server.
func NewRouter(cfg RouterConfig, page *PageHandler, api *APIHandler, health *HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)

	// Probes and metrics carry no session.
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session))
		r.Use(middleware.Logging(cfg.Logger))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/", page.Dashboard)
		r.Post("/chat", page.Submit)
		r.Post("/chat/clear", page.Clear)
		r.Get("/chart", page.Chart)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.CORS())

			r.Get("/countries", api.Countries)
			r.Get("/cases", api.Cases)
			r.Get("/models", api.Models)

			r.Route("/chat", func(r chi.Router) {
				r.Get("/turns", api.Turns)
				r.Post("/turns", api.Submit)
				r.Delete("/turns", api.Reset)
				r.Get("/usage", api.Usage)
			})
		})
	})

	return r
}
