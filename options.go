package tangguh

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WithHTTPClient sets a custom HTTP client for the transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL prefixes relative endpoints with base.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithRetryConfig sets the default retry configuration for all routes.
func WithRetryConfig(config RetryConfig) Option {
	return func(c *Client) {
		c.retry = config
	}
}

// WithCircuitBreakerConfig sets the default circuit breaker configuration for
// all routes.
func WithCircuitBreakerConfig(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breaker = config
	}
}

// WithTimeoutConfig sets the default timeout configuration for all routes.
func WithTimeoutConfig(config TimeoutConfig) Option {
	return func(c *Client) {
		c.timeout = config
	}
}

// WithRequestTimeout sets just the per attempt request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout.RequestTimeout = d
	}
}

// WithFallbackStore replaces the client's fallback store, e.g. to share one
// across clients.
func WithFallbackStore(store *FallbackStore) Option {
	return func(c *Client) {
		c.fallbacks = store
	}
}

// WithMiddleware appends middleware wrapping every transport attempt.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimiter enables client side rate limiting: r requests per second
// with the given burst. Rejected calls fail fast with a RateLimitError.
func WithRateLimiter(r float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom request ID generator for debug logs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// mergeRetryConfig overlays a per-call override on the client defaults;
// zero-valued override fields inherit. A non-nil empty RetryableStatusCodes
// slice is an explicit "retry no statuses".
func mergeRetryConfig(base RetryConfig, override *RetryConfig) RetryConfig {
	if override == nil {
		return base
	}
	merged := base
	if override.MaxAttempts > 0 {
		merged.MaxAttempts = override.MaxAttempts
	}
	if override.BaseDelay > 0 {
		merged.BaseDelay = override.BaseDelay
	}
	if override.MaxDelay > 0 {
		merged.MaxDelay = override.MaxDelay
	}
	if override.BackoffMultiplier > 0 {
		merged.BackoffMultiplier = override.BackoffMultiplier
	}
	if override.Jitter > 0 {
		merged.Jitter = override.Jitter
	}
	if override.RetryableStatusCodes != nil {
		merged.RetryableStatusCodes = override.RetryableStatusCodes
	}
	return merged
}

func mergeBreakerConfig(base CircuitBreakerConfig, override *CircuitBreakerConfig) CircuitBreakerConfig {
	if override == nil {
		return base
	}
	merged := base
	if override.FailureThreshold > 0 {
		merged.FailureThreshold = override.FailureThreshold
	}
	if override.RecoveryTimeout > 0 {
		merged.RecoveryTimeout = override.RecoveryTimeout
	}
	if override.ExpectedErrorRate > 0 {
		merged.ExpectedErrorRate = override.ExpectedErrorRate
	}
	return merged
}

func mergeTimeoutConfig(base TimeoutConfig, override *TimeoutConfig) TimeoutConfig {
	if override == nil {
		return base
	}
	merged := base
	if override.RequestTimeout > 0 {
		merged.RequestTimeout = override.RequestTimeout
	}
	if override.ConnectionTimeout > 0 {
		merged.ConnectionTimeout = override.ConnectionTimeout
	}
	return merged
}

// ValidateConfiguration checks the client configuration and returns a
// Validation-typed error listing every violation.
func (c *Client) ValidateConfiguration() error {
	var violations []string

	if c.retry.MaxAttempts < 1 {
		violations = append(violations, "maxAttempts must be at least 1")
	}
	if c.retry.BaseDelay <= 0 {
		violations = append(violations, "baseDelay must be positive")
	}
	if c.retry.MaxDelay < c.retry.BaseDelay {
		violations = append(violations, "maxDelay must be greater than or equal to baseDelay")
	}
	if c.retry.BackoffMultiplier < 1 {
		violations = append(violations, "backoffMultiplier must be at least 1")
	}
	if c.retry.Jitter < 0 || c.retry.Jitter > 1 {
		violations = append(violations, "jitter must be between 0 and 1")
	}

	if c.breaker.FailureThreshold < 1 {
		violations = append(violations, "failureThreshold must be at least 1")
	}
	if c.breaker.RecoveryTimeout <= 0 {
		violations = append(violations, "recoveryTimeout must be positive")
	}
	if c.breaker.ExpectedErrorRate <= 0 || c.breaker.ExpectedErrorRate > 1 {
		violations = append(violations, "expectedErrorRate must be in (0, 1]")
	}

	if c.timeout.RequestTimeout <= 0 {
		violations = append(violations, "requestTimeout must be positive")
	}
	if c.timeout.ConnectionTimeout < 0 {
		violations = append(violations, "connectionTimeout must not be negative")
	}

	if len(violations) > 0 {
		return newValidationError(violations)
	}
	return nil
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// MustValidateConfiguration panics if the configuration is invalid.
func (c *Client) MustValidateConfiguration() {
	if err := c.ValidateConfiguration(); err != nil {
		panic(fmt.Sprintf("invalid client configuration: %v", err))
	}
}
