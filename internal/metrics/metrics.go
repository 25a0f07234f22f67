package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	ProductMutations  *prometheus.CounterVec
	VariantsGenerated *prometheus.CounterVec
	UploadFailures    prometheus.Counter
	FileRemovals      *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go and process collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ProductMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "products",
			Name:      "mutations_total",
			Help:      "Product create/update/delete calls by outcome (success, partial, error).",
		}, []string{"operation", "outcome"}),
		VariantsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "variants_generated_total",
			Help:      "Encoded image variants by format.",
		}, []string{"format"}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "upload_failures_total",
			Help:      "Upload requests that failed and were rolled back.",
		}),
		FileRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "file_removals_total",
			Help:      "Attempted file removals by result (removed, failed).",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Catalog events handed to the publisher by type and result.",
		}, []string{"type", "result"}),
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.ProductMutations,
		m.VariantsGenerated,
		m.UploadFailures,
		m.FileRemovals,
		m.EventsPublished,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRemovals counts removed and failed file deletions
func (m *Metrics) ObserveRemovals(removed, failed int) {
	m.FileRemovals.WithLabelValues("removed").Add(float64(removed))
	m.FileRemovals.WithLabelValues("failed").Add(float64(failed))
}
