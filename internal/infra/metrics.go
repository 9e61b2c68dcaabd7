package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the scoring service and outbox relay export.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	TippsScored       prometheus.Counter
	OutboxPublished   prometheus.Counter
	OutboxFailed      prometheus.Counter
	ProjectionMisses  prometheus.Counter
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tippspiel",
			Name:      "operation_duration_seconds",
			Help:      "Duration of scoring operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tippspiel",
			Name:      "operation_errors_total",
			Help:      "Scoring operations that returned an error, by error code.",
		}, []string{"op", "code"}),
		TippsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tippspiel",
			Name:      "tipps_scored_total",
			Help:      "Tipps awarded points.",
		}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tippspiel",
			Name:      "outbox_published_total",
			Help:      "Outbox events published to Kafka.",
		}),
		OutboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tippspiel",
			Name:      "outbox_publish_failures_total",
			Help:      "Outbox events that failed to publish.",
		}),
		ProjectionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tippspiel",
			Name:      "leaderboard_projection_misses_total",
			Help:      "Leaderboard reads that fell back to Postgres.",
		}),
	}
	reg.MustRegister(
		m.OperationDuration,
		m.OperationErrors,
		m.TippsScored,
		m.OutboxPublished,
		m.OutboxFailed,
		m.ProjectionMisses,
	)
	return m
}

// ObserveOperation records duration and, when code is non-empty, an error.
func (m *Metrics) ObserveOperation(op string, start time.Time, code string) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if code != "" {
		m.OperationErrors.WithLabelValues(op, code).Inc()
	}
}
