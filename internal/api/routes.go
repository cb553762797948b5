package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zapponejosh/organ-rotation/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET  /health
//	GET  /metrics                                          (when enabled)
//	GET  /api/v1/churches/{churchID}/cycles
//	GET  /api/v1/churches/{churchID}/assignments?start=&end=
//	POST /api/v1/churches/{churchID}/schedule/generate     (API key)
//	POST /api/v1/churches/{churchID}/schedule/regenerate   (API key)
func SetupRoutes(handlers *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	// ==========================================================================
	// Public routes
	// ==========================================================================
	r.Get("/health", handlers.HealthCheck)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/churches/{churchID}", func(r chi.Router) {
		r.Get("/cycles", handlers.ListCycles)
		r.Get("/assignments", handlers.ListAssignments)

		// ======================================================================
		// Schedule-writing routes (API key)
		// ======================================================================
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg, logger))
			r.Post("/schedule/generate", handlers.Generate)
			r.Post("/schedule/regenerate", handlers.Regenerate)
		})
	})

	return r
}
