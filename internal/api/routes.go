package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/lunar-birthday-api/internal/config"
	"github.com/zapponejosh/lunar-birthday-api/internal/metrics"
)

// limiterTTL is how long an idle client keeps its rate limiter.
const limiterTTL = 10 * time.Minute

// NewRouter configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET    /health
//	GET    /metrics
//	GET    /api/v1/lunar/range
//	GET    /api/v1/lunar/convert
//	GET    /api/v1/lunar/project
//	POST   /api/v1/birthdays           (API key)
//	GET    /api/v1/birthdays           (API key)
//	GET    /api/v1/birthdays/{id}      (API key)
//	DELETE /api/v1/birthdays/{id}      (API key)
//	GET    /api/v1/reminders           (API key)
//	GET    /api/v1/reminders/check     (API key)
//	DELETE /api/v1/reminders           (API key)
func NewRouter(h *Handlers, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger, m),
		CORSMiddleware(),
	)
	if cfg.RateLimitEnabled() {
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, limiterTTL))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	// ==========================================================================
	// Public routes
	// ==========================================================================
	r.Get("/health", h.HealthCheck)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/lunar", func(r chi.Router) {
			r.Get("/range", h.GetRange)
			r.Get("/convert", h.Convert)
			r.Get("/project", h.Project)
		})

		// ======================================================================
		// Authenticated routes
		// ======================================================================
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg, logger))

			r.Post("/birthdays", h.CreateBirthdays)
			r.Get("/birthdays", h.ListBirthdays)
			r.Get("/birthdays/{id}", h.GetBirthday)
			r.Delete("/birthdays/{id}", h.DeleteBirthday)

			r.Get("/reminders", h.ListReminders)
			r.Get("/reminders/check", h.CheckReminders)
			r.Delete("/reminders", h.ClearReminders)
		})
	})

	return r
}
