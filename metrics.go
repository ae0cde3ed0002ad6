package tangguh

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// every resilience layer. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal        *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	timeoutsTotal       *prometheus.CounterVec
	fallbackHitsTotal   *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tangguh_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tangguh_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tangguh_circuit_breaker_state",
				Help: "Current state of a route's circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"route"},
		),
		timeoutsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_timeouts_total",
				Help: "Total number of attempts lost to the request deadline",
			},
			[]string{"method", "endpoint"},
		),
		fallbackHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_fallback_hits_total",
				Help: "Total number of responses served from the fallback store",
			},
			[]string{"endpoint", "key"},
		),
		rateLimitedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_rate_limited_total",
				Help: "Total number of requests rejected by the client side rate limiter",
			},
			[]string{"endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_errors_total",
				Help: "Total number of terminal errors by classification",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// RecordRequestStart marks a request entering the client.
func (m *MetricsCollector) RecordRequestStart(method, endpoint string) {
	m.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a request leaving the client.
func (m *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	m.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest observes a finished request with its terminal status code
// (0 when no HTTP exchange completed).
func (m *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	m.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	m.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRetry counts a scheduled retry attempt.
func (m *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	m.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCircuitBreakerState publishes a route's breaker state.
func (m *MetricsCollector) RecordCircuitBreakerState(route string, state CircuitState) {
	m.circuitBreakerState.WithLabelValues(route).Set(float64(state))
}

// RecordTimeout counts an attempt lost to the request deadline.
func (m *MetricsCollector) RecordTimeout(method, endpoint string) {
	m.timeoutsTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordFallbackHit counts a response served from the fallback store.
func (m *MetricsCollector) RecordFallbackHit(endpoint, key string) {
	m.fallbackHitsTotal.WithLabelValues(endpoint, key).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *MetricsCollector) RecordRateLimited(endpoint string) {
	m.rateLimitedTotal.WithLabelValues(endpoint).Inc()
}

// RecordError counts a terminal error by classification.
func (m *MetricsCollector) RecordError(errorType, method, endpoint string) {
	m.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
