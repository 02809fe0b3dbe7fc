package meterhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Option configures the router.
type Option func(*routerConfig)

type routerConfig struct {
	log    *slog.Logger
	checks map[string]func(context.Context) error
}

func WithLogger(l *slog.Logger) Option {
	return func(c *routerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHealthCheck adds a named readiness check to /healthz.
func WithHealthCheck(name string, fn func(context.Context) error) Option {
	return func(c *routerConfig) {
		if fn != nil {
			c.checks[name] = fn
		}
	}
}

// NewRouter returns the HTTP API of engine.
func NewRouter(engine *meter.Engine, opts ...Option) chi.Router {
	cfg := &routerConfig{
		log:    slog.Default(),
		checks: make(map[string]func(context.Context) error),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.log.With(logger.Component("http"))
	h := &handlers{engine: engine, log: log}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(log))

	r.Get("/healthz", httpserver.HealthCheckHandler(log, cfg.checks))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/capabilities", h.capabilities)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/usage", h.getUsage)
			r.Post("/usage", h.recordUsage)
			r.Post("/check", h.check)
			r.Get("/charges", h.userCharges)
		})

		r.Route("/charges", func(r chi.Router) {
			r.Get("/pending", h.pendingCharges)
			r.Post("/{chargeID}/status", h.updateChargeStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	return r
}
