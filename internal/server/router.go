package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
	"github.com/sevigo/resizer/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and routes.
// Unknown paths and method mismatches both answer 404 with an empty body.
func NewRouter(cfg *config.Config, dispatcher core.JobDispatcher, stats core.StatsReporter, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	notFound := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", handler.Index)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/stats", handler.NewStatsHandler(stats, logger).Handle)

	r.Group(func(r chi.Router) {
		r.Use(requestDeadline(cfg.Server.RequestTimeout))
		r.Post("/resize", handler.NewResizeHandler(cfg, dispatcher, logger).Handle)
	})

	return r
}

// requestDeadline bounds how long a request may wait for the worker lane.
// Unlike middleware.Timeout it writes nothing itself; the resize handler
// answers 504 with the error text when the deadline passes.
func requestDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
