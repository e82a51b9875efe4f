package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hacker_tracker"

// Metrics holds the process collectors. All methods are safe on a nil receiver
// so components can run without instrumentation.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	rateLimited       prometheus.Counter
	jobsEnqueued      *prometheus.CounterVec
	jobsProcessed     *prometheus.CounterVec
	confirmations     *prometheus.CounterVec
	confirmationsGone prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		jobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Jobs enqueued by queue.",
		}, []string{"queue"}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Jobs processed by queue and outcome.",
		}, []string{"queue", "outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_confirmations_total",
			Help:      "Confirmation code verifications by outcome.",
		}, []string{"outcome"}),
		confirmationsGone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_confirmations_purged_total",
			Help:      "Confirmation records removed by purge.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpLatency,
		m.rateLimited,
		m.jobsEnqueued,
		m.jobsProcessed,
		m.confirmations,
		m.confirmationsGone,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) JobEnqueued(queue string) {
	if m == nil {
		return
	}
	m.jobsEnqueued.WithLabelValues(queue).Inc()
}

// JobProcessed records a handler outcome: completed, retry or failed.
func (m *Metrics) JobProcessed(queue, outcome string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(queue, outcome).Inc()
}

// Verification outcomes recorded by Confirmation
const (
	ConfirmationConfirmed = "confirmed"
	ConfirmationInvalid   = "invalid"
	ConfirmationExpired   = "expired"
	ConfirmationRaced     = "raced"
)

// Confirmation records a verification outcome: confirmed, invalid, expired or raced.
func (m *Metrics) Confirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ConfirmationsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.confirmationsGone.Add(float64(n))
}
