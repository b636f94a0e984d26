// Package httptransport assembles the HTTP surface: middleware chain, domain
// handlers, health and metrics endpoints. Handlers stay thin and delegate to
// the domain services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidgate/pkg/platform/httputil"
	"vidgate/pkg/platform/middleware/metadata"
	"vidgate/pkg/platform/middleware/requestid"
	"vidgate/pkg/platform/middleware/requesttime"
)

// Registrar mounts a domain handler's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps collects everything the router mounts.
type Deps struct {
	Logger   *slog.Logger
	Handlers []Registrar

	// Health checks run on /healthz, keyed by dependency name.
	Health map[string]HealthChecker
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", healthHandler(deps))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := http.StatusOK
		checks := make(map[string]string, len(deps.Health))
		for name, checker := range deps.Health {
			if err := checker.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = "unavailable"
				if deps.Logger != nil {
					deps.Logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		httputil.WriteJSON(w, status, body)
	}
}
