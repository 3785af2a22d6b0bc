package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes used as the "outcome" label of requests_total.
const (
	OutcomeSuccess      = "success"
	OutcomeProxyError   = "proxy_error"
	OutcomeRateLimited  = "rate_limited"
	OutcomeUnavailable  = "unavailable"
	OutcomeBodyTooLarge = "body_too_large"
	OutcomeBadRequest   = "bad_request"
	OutcomePreflight    = "preflight"
	OutcomeMetrics      = "metrics"
)

// noBackend labels requests that never reached routing.
const noBackend = "none"

// Metrics holds the Prometheus collectors exported on the admin listener.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	upstreamAttempts    *prometheus.CounterVec
	backendHealth       *prometheus.GaugeVec
	consecutiveFailures *prometheus.GaugeVec
	circuitBreaker      *prometheus.GaugeVec
	rateLimitRejections prometheus.Counter
	activeConnections   prometheus.Gauge
	buildInfo           *prometheus.GaugeVec
	registry            *prometheus.Registry
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "svcgw"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of inbound requests by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of proxied requests in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10, 30,
			},
		},
		[]string{"backend", "outcome"},
	)

	m.upstreamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Upstream call attempts by backend and result",
		},
		[]string{"backend", "result"},
	)

	m.backendHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_health",
			Help:      "Backend health status (1=healthy, 0=unhealthy)",
		},
		[]string{"backend"},
	)

	m.consecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_consecutive_failures",
			Help:      "Consecutive failed health probes per backend",
		},
		[]string{"backend"},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"backend"},
	)

	m.rateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)

	m.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Requests currently being handled",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the gateway",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.upstreamAttempts,
		m.backendHealth,
		m.consecutiveFailures,
		m.circuitBreaker,
		m.rateLimitRejections,
		m.activeConnections,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest records a finished request. backend may be empty when the
// request ended before routing.
func (m *Metrics) RecordRequest(backend, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if backend == "" {
		backend = noBackend
	}
	m.requestsTotal.WithLabelValues(backend, outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeProxyError {
		m.requestDuration.WithLabelValues(backend, outcome).Observe(duration.Seconds())
	}
}

// RecordAttempt records one upstream call attempt.
func (m *Metrics) RecordAttempt(backend string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "error"
	}
	m.upstreamAttempts.WithLabelValues(backend, result).Inc()
}

// SetBackendHealth sets the backend health gauge.
func (m *Metrics) SetBackendHealth(backend string, healthy bool) {
	if m == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.backendHealth.WithLabelValues(backend).Set(value)
}

// SetConsecutiveFailures sets the consecutive probe failure gauge.
func (m *Metrics) SetConsecutiveFailures(backend string, failures uint32) {
	if m == nil {
		return
	}
	m.consecutiveFailures.WithLabelValues(backend).Set(float64(failures))
}

// SetCircuitBreakerState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(backend string, state int) {
	if m == nil {
		return
	}
	m.circuitBreaker.WithLabelValues(backend).Set(float64(state))
}

// RecordRateLimitRejection counts a rejected request. Client identities are
// deliberately not used as labels; they belong in logs.
func (m *Metrics) RecordRateLimitRejection() {
	if m == nil {
		return
	}
	m.rateLimitRejections.Inc()
}

// IncActiveConnections increments the in-flight gauge.
func (m *Metrics) IncActiveConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

// DecActiveConnections decrements the in-flight gauge.
func (m *Metrics) DecActiveConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
