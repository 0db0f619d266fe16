package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application-level Prometheus collectors. One instance is
// created per process and registered on its own registry so tests can build
// isolated copies.
type Metrics struct {
	registry *prometheus.Registry

	IngestRuns     *prometheus.CounterVec
	IngestRows     prometheus.Counter
	IngestDropped  prometheus.Counter
	AggregateRuns  prometheus.Counter
	ExportRequests *prometheus.CounterVec
	IngestSeconds  prometheus.Histogram
}

// NewMetrics builds and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		IngestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casepulse",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		IngestRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "casepulse",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Normalized case rows accepted across all runs.",
		}),
		IngestDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "casepulse",
			Subsystem: "ingest",
			Name:      "rows_dropped_total",
			Help:      "Raw rows dropped for missing required fields.",
		}),
		AggregateRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "casepulse",
			Subsystem: "analytics",
			Name:      "aggregate_runs_total",
			Help:      "Completed aggregation passes.",
		}),
		ExportRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casepulse",
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "View export downloads by view name.",
		}, []string{"view"}),
		IngestSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "casepulse",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall time of ingestion runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
