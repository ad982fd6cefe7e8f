// Package metrics defines the Prometheus collectors used by the finder
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service. Each Metrics has
// its own registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	FindsTotal           *prometheus.CounterVec
	FindLatency          *prometheus.HistogramVec
	FindResultWords      prometheus.Histogram
	FindProbes           *prometheus.HistogramVec
	FindsCoalescedTotal  prometheus.Counter
	RateLimitedTotal     prometheus.Counter
	AnalyticsDropped     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		FindsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_finds_total",
				Help: "Total find calls by strategy and outcome (ok, empty, invalid, timeout, error).",
			},
			[]string{"strategy", "outcome"},
		),
		FindLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finder_find_latency_seconds",
				Help:    "Find latency in seconds, grid build included.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"strategy"},
		),
		FindResultWords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finder_result_words",
				Help:    "Number of words returned per find.",
				Buckets: []float64{0, 1, 2, 4, 6, 8, 10},
			},
		),
		FindProbes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finder_probes",
				Help:    "Candidate cells probed per find.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
			[]string{"strategy"},
		),
		FindsCoalescedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finder_finds_coalesced_total",
				Help: "Find requests answered by an identical request already in flight.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finder_rate_limited_total",
				Help: "Requests rejected by the rate limiter.",
			},
		),
		AnalyticsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "finder_analytics_events_dropped_total",
				Help: "Find events dropped because the collector buffer was full.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.FindsTotal,
		m.FindLatency,
		m.FindResultWords,
		m.FindProbes,
		m.FindsCoalescedTotal,
		m.RateLimitedTotal,
		m.AnalyticsDropped,
		m.CircuitBreakerState,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
