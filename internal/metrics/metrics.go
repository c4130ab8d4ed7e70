// Package metrics holds the Prometheus collectors of the service. Collectors
// are registered on a dedicated registry so tests can build isolated ones.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "testcraft"

// Registry bundles the collectors exposed on /metrics.
type Registry struct {
	registry *prometheus.Registry
	Import   *Import
	HTTP     *HTTP
}

// New creates a registry with runtime, import and HTTP collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		registry: reg,
		Import:   NewImport(reg),
		HTTP:     NewHTTP(reg),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Import tracks batch import jobs. A nil *Import records nothing.
type Import struct {
	jobsTotal *prometheus.CounterVec
	rowsTotal *prometheus.CounterVec
	active    prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// NewImport registers the import collectors on reg.
func NewImport(reg prometheus.Registerer) *Import {
	factory := promauto.With(reg)
	return &Import{
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "jobs_total",
			Help:      "Total number of finished import jobs.",
		}, []string{"status"}),
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of imported rows by outcome.",
		}, []string{"outcome"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "jobs_active",
			Help:      "Import jobs currently running.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "job_duration_seconds",
			Help:      "Wall time of import jobs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
	}
}

func (m *Import) JobStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Import) JobFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.jobsTotal.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *Import) RowProcessed(outcome string) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues(outcome).Inc()
}

// HTTP tracks served requests. A nil *HTTP records nothing.
type HTTP struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTP registers the request collectors on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
