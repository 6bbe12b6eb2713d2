package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/handler/sessions"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/handler/ws"
	middlewarePkg "github.com/ilam0602/glg-mobile-messages-ws/internal/middleware"
	"github.com/ilam0602/glg-mobile-messages-ws/pkg/utils"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// NewRouter wires HTTP routes to core services.
func NewRouter(wsHandler *ws.Handler, sessionsHandler *sessions.Handler, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	wsHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		sessionsHandler.RegisterRoutes(api)
	})

	r.Get("/healthz", handleHealth(checks))

	return r
}

// handleHealth pings each backing dependency and reports per-check
// status. Any failing check turns the response 503 so load balancers
// rotate the instance out.
func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		utils.RespondJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
