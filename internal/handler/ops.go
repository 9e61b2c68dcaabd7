package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsDeps holds what the ops router serves.
type OpsDeps struct {
	Registry *prometheus.Registry
	Checks   map[string]Pinger
	Logger   *slog.Logger
}

// NewOpsRouter serves /health and /metrics for a worker process.
func NewOpsRouter(deps OpsDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(RequestID)
	r.Use(RequestLogger(deps.Logger))

	r.With(JSONContentType).Get("/health", HealthHandler(deps.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, domain.ErrNotFound("route", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, &domain.AppError{
			Code:    "METHOD_NOT_ALLOWED",
			Message: fmt.Sprintf("%s not allowed on %s", r.Method, r.URL.Path),
			Status:  http.StatusMethodNotAllowed,
		})
	})

	return r
}
