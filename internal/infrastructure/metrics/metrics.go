// Package metrics exposes worker and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfsubmit"

// Registry holds the service collectors on a dedicated prometheus.Registry.
type Registry struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobsInFlight    prometheus.Gauge
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Registry. Go runtime and process collectors are included.
func New(service string) *Registry {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	r := &Registry{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_total",
			Help:        "Attachment jobs finished, by document type and status.",
			ConstLabels: constLabels,
		}, []string{"doctype", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			Help:        "Attachment job duration in seconds, by document type and status.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"doctype", "status"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_in_flight",
			Help:        "Attachment jobs currently executing.",
			ConstLabels: constLabels,
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		r.jobsTotal, r.jobDuration, r.jobsInFlight,
		r.requestTotal, r.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// JobStarted marks a job as executing.
func (r *Registry) JobStarted(string) {
	r.jobsInFlight.Inc()
}

// JobFinished records a finished job.
func (r *Registry) JobFinished(docType, status string, duration time.Duration) {
	r.jobsInFlight.Dec()
	r.jobsTotal.WithLabelValues(docType, status).Inc()
	r.jobDuration.WithLabelValues(docType, status).Observe(duration.Seconds())
}

// ObserveRequest records one HTTP request. route is the matched route
// pattern, never the raw path.
func (r *Registry) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
