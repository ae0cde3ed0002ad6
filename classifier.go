package tangguh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Classifier tags raw failures with a normalized classification and a
// retryability flag. Classification is pure: the same input always yields the
// same ClassifiedError fields, and nothing is mutated.
type Classifier struct {
	retryableStatus map[int]struct{}
}

// NewClassifier builds a classifier treating the given HTTP statuses as
// retryable. A nil or empty slice means no status based retries.
func NewClassifier(statusCodes []int) *Classifier {
	set := make(map[int]struct{}, len(statusCodes))
	for _, code := range statusCodes {
		set[code] = struct{}{}
	}
	return &Classifier{retryableStatus: set}
}

// Classify inspects err and returns its classification. Errors that are
// already classified pass through unchanged.
func (c *Classifier) Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr
	}

	if code, ok := connectionFailureCode(err); ok {
		return &ClassifiedError{
			Type:      ErrorTypeNetwork,
			Message:   "network request failed",
			Code:      code,
			Network:   true,
			Retryable: true,
			Cause:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newTimeoutError(err)
	}

	return &ClassifiedError{
		Type:    ErrorTypeUnknown,
		Message: err.Error(),
		Cause:   err,
	}
}

// ClassifyStatus builds the classification for a non-2xx response. The
// Retry-After header, when present, is parsed as an integer second count and
// carried as advisory metadata.
func (c *Classifier) ClassifyStatus(statusCode int, header http.Header) *ClassifiedError {
	_, retryable := c.retryableStatus[statusCode]
	return &ClassifiedError{
		Type:       ErrorTypeHTTPStatus,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
		RetryAfter: parseRetryAfter(header.Get("Retry-After")),
		Retryable:  retryable,
	}
}

// connectionFailureCode reports whether err is a connection level failure
// (refused, reset, host not found) and the errno style code naming it.
func connectionFailureCode(err error) (string, bool) {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED", true
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET", true
	case errors.Is(err, syscall.EHOSTUNREACH):
		return "EHOSTUNREACH", true
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE", true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND", true
	}
	return "", false
}

// parseRetryAfter parses a Retry-After header value in delay-seconds form.
// Anything else yields zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
