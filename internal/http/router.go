package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps holds the handlers mounted by the HTTP router.
type Deps struct {
	InsightHandler  http.Handler
	FeedbackHandler http.Handler
	HealthHandler   http.Handler
	StatsHandler    http.Handler
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", deps.HealthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/insights", deps.InsightHandler)
			r.Method(http.MethodPost, "/feedback", deps.FeedbackHandler)
			r.Method(http.MethodGet, "/index/stats", deps.StatsHandler)
		})
	})

	return r
}
