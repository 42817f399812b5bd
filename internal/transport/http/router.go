// Package http assembles the service's HTTP surface: the shared middleware
// chain, the authenticated domain routes, and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"condoflow/internal/platform/middleware"
)

// Registerer is implemented by every domain handler.
type Registerer interface {
	Register(r chi.Router)
}

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router needs from main.
type Deps struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator

	// Checks maps dependency name to its health probe. Nil-valued entries
	// are skipped so main can pass optional dependencies unconditionally.
	Checks map[string]HealthCheck

	Handlers []Registerer
}

// New assembles the router.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unhealthy","failing":"` + name + `"}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
