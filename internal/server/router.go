package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/pawdocs/internal/api"
	"github.com/cloo-solutions/pawdocs/internal/api/handlers"
	"github.com/cloo-solutions/pawdocs/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(ctx context.Context) error

type RouterConfig struct {
	Logger          *zap.Logger
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	HealthCheck     HealthChecker
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads enforce their own limit in the handler.
	const maxJSONBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.Tenant)
	r.Use(middleware.AccessLog(cfg.Logger))

	r.Get("/health", healthHandler(cfg.HealthCheck))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/documents", cfg.DocumentHandler.Upload)
	r.Post("/pdf-upload", cfg.DocumentHandler.Upload)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxJSONBodyBytes))

		r.Get("/documents", cfg.DocumentHandler.Stats)
		r.Delete("/documents", cfg.DocumentHandler.Delete)
		r.Post("/ask", cfg.AskHandler.Ask)
	})

	return r
}

func healthHandler(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				api.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
