package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service on a private
// registry. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	errors       *prometheus.CounterVec
	sweeps       *prometheus.CounterVec
	sweepDemoted prometheus.Counter
	sweepLatency prometheus.Histogram
}

// NewMetrics registers the service collectors plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Requests answered with an error body, by error code.",
		}, []string{"method", "path", "code"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_sweeps_total",
			Help: "SLA expiry sweeps by result.",
		}, []string{"result"}),
		sweepDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_cases_demoted_total",
			Help: "Escalated cases demoted to Pending after their SLA elapsed.",
		}),
		sweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of SLA expiry sweeps in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.errors, m.sweeps, m.sweepDemoted, m.sweepLatency,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordSweep records the outcome of one SLA sweep.
func (m *Metrics) RecordSweep(demoted int, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepDemoted.Add(float64(demoted))
	m.sweepLatency.Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
