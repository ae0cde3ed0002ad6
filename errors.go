package tangguh

import (
	"errors"
	"fmt"
	"time"
)

// Error kind constants used in ClassifiedError.Type.
const (
	ErrorTypeNetwork     = "NetworkError"
	ErrorTypeTimeout     = "TimeoutError"
	ErrorTypeHTTPStatus  = "HttpStatusError"
	ErrorTypeCircuitOpen = "CircuitOpenError"
	ErrorTypeRateLimit   = "RateLimitError"
	ErrorTypeValidation  = "ValidationError"
	ErrorTypeUnknown     = "UnclassifiedError"
)

// Sentinel errors for fast-fail rejections.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("tangguh: circuit open")

	// ErrRateLimited is returned when the client side rate limiter rejects a call.
	ErrRateLimited = errors.New("tangguh: rate limited")
)

// ClassifiedError is a normalized failure tagging the underlying cause and
// whether it is safe to retry. At most one of Network/Timeout is true; both
// are false for HTTP status and unclassified failures. Retryable is derived
// during classification and never set independently.
type ClassifiedError struct {
	Type       string
	Message    string
	StatusCode int
	Code       string
	RetryAfter time.Duration
	Retryable  bool
	Network    bool
	Timeout    bool
	Cause      error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error kinds for errors.Is.
func (e *ClassifiedError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClassifiedError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed on
// retry. Circuit-open and rate-limit rejections count as transient: the
// remote may well recover, the client just has to back off first.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		switch cerr.Type {
		case ErrorTypeCircuitOpen, ErrorTypeRateLimit:
			return true
		default:
			return cerr.Retryable
		}
	}
	return false
}

func newCircuitOpenError(endpoint string) *ClassifiedError {
	return &ClassifiedError{
		Type:    ErrorTypeCircuitOpen,
		Message: fmt.Sprintf("circuit breaker is open for %s", endpoint),
		Cause:   ErrCircuitOpen,
	}
}

func newRateLimitError(endpoint string) *ClassifiedError {
	return &ClassifiedError{
		Type:    ErrorTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", endpoint),
		Cause:   ErrRateLimited,
	}
}

func newTimeoutError(cause error) *ClassifiedError {
	return &ClassifiedError{
		Type:      ErrorTypeTimeout,
		Message:   "Request timeout",
		Timeout:   true,
		Retryable: true,
		Cause:     cause,
	}
}

func newValidationError(violations []string) *ClassifiedError {
	return &ClassifiedError{
		Type:    ErrorTypeValidation,
		Message: "configuration validation failed",
		Cause:   fmt.Errorf("validation errors: %v", violations),
	}
}
