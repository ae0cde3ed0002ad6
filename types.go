package tangguh

import (
	"net/http"
	"time"
)

// RetryConfig controls the bounded retry loop for a route.
type RetryConfig struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// BackoffMultiplier grows the delay between attempts.
	BackoffMultiplier float64
	// Jitter adds up to Jitter*delay of randomness (0 disables it).
	Jitter float64
	// RetryableStatusCodes lists HTTP statuses worth retrying.
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns the retry defaults used by New.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:          3,
		BaseDelay:            100 * time.Millisecond,
		MaxDelay:             10 * time.Second,
		Jitter:               0,
		BackoffMultiplier:    2.0,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit waits before allowing a trial call.
	RecoveryTimeout time.Duration
	// ExpectedErrorRate is carried for forward compatibility with rate based
	// tripping; the current machine trips on consecutive failures only.
	ExpectedErrorRate float64
}

// DefaultCircuitBreakerConfig returns the breaker defaults used by New.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		ExpectedErrorRate: 0.5,
	}
}

// TimeoutConfig holds per attempt deadline configuration.
type TimeoutConfig struct {
	// RequestTimeout bounds a single transport attempt.
	RequestTimeout time.Duration
	// ConnectionTimeout is applied to the default transport's dialer when
	// tangguh constructs its own http.Client; it is advisory otherwise.
	ConnectionTimeout time.Duration
}

// DefaultTimeoutConfig returns the timeout defaults used by New.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		RequestTimeout:    30 * time.Second,
		ConnectionTimeout: 10 * time.Second,
	}
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int64

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Source tags where a Response value came from.
type Source string

const (
	// SourceLive marks a response obtained from the transport.
	SourceLive Source = "live"
	// SourceFallback marks a previously captured value substituted after the
	// live call was exhausted or short-circuited.
	SourceFallback Source = "fallback"
)

// Response is the resolved outcome of a Request call.
type Response struct {
	// StatusCode is the HTTP status of the live exchange; 0 for fallback hits.
	StatusCode int
	// Header holds the response headers; nil for fallback hits.
	Header http.Header
	// Body is the raw response body; nil for fallback hits.
	Body []byte
	// Data is the decoded body: JSON responses decode into maps/slices,
	// anything else is the body as a string. Fallback hits carry the stored
	// value unchanged.
	Data any
	// Source reports whether the value is live or a fallback substitution.
	Source Source
}

// IsFallback reports whether the response was served from the fallback store.
func (r *Response) IsFallback() bool {
	return r != nil && r.Source == SourceFallback
}

// Middleware wraps the transport call for cross-cutting concerns.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option configures a Client.
type Option func(*Client)
