package tangguh

import (
	"encoding/json"
	"net/http"
)

// RequestOption configures a single Request call.
type RequestOption func(*requestOptions)

// requestOptions carries the per-call knobs: headers and body for the
// exchange itself, plus resilience overrides merged over the client defaults.
type requestOptions struct {
	headers http.Header
	body    []byte
	bodyErr error

	retry       *RetryConfig
	breaker     *CircuitBreakerConfig
	timeout     *TimeoutConfig
	fallbackKey string
}

func newRequestOptions(opts []RequestOption) *requestOptions {
	rc := &requestOptions{headers: make(http.Header)}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// WithHeader adds a header to the request, overriding the JSON default when
// the same key is given.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestOptions) {
		rc.headers.Set(key, value)
	}
}

// WithHeaders merges all given headers into the request.
func WithHeaders(headers http.Header) RequestOption {
	return func(rc *requestOptions) {
		for key, values := range headers {
			for _, value := range values {
				rc.headers.Add(key, value)
			}
		}
	}
}

// WithBody sets a raw request body. The bytes are replayed on every retry
// attempt.
func WithBody(body []byte) RequestOption {
	return func(rc *requestOptions) {
		rc.body = body
	}
}

// WithJSONBody marshals v as the request body.
func WithJSONBody(v any) RequestOption {
	return func(rc *requestOptions) {
		body, err := json.Marshal(v)
		if err != nil {
			rc.bodyErr = err
			return
		}
		rc.body = body
	}
}

// WithFallbackKey selects the fallback store entry substituted when the call
// is exhausted or the circuit is open.
func WithFallbackKey(key string) RequestOption {
	return func(rc *requestOptions) {
		rc.fallbackKey = key
	}
}

// WithRetryOverride overrides retry configuration for this call's route.
// Zero-valued fields inherit the client defaults. The route's retry handler
// is created on its first use; overrides on later calls to the same route are
// ignored.
func WithRetryOverride(config RetryConfig) RequestOption {
	return func(rc *requestOptions) {
		rc.retry = &config
	}
}

// WithCircuitBreakerOverride overrides breaker configuration for this call's
// route, under the same first-use semantics as WithRetryOverride.
func WithCircuitBreakerOverride(config CircuitBreakerConfig) RequestOption {
	return func(rc *requestOptions) {
		rc.breaker = &config
	}
}

// WithTimeoutOverride overrides timeout configuration for this call's route,
// under the same first-use semantics as WithRetryOverride.
func WithTimeoutOverride(config TimeoutConfig) RequestOption {
	return func(rc *requestOptions) {
		rc.timeout = &config
	}
}
