package tangguh

import (
	"context"
	"time"

	"github.com/adyatma/tangguh/internal/backoff"
)

// RetryHandler re-invokes a failed, retryable operation up to a bounded
// number of attempts with capped exponential backoff. The loop is iterative
// and the backoff sleep is cancellable through the caller's context, so an
// abandoned request never leaves a dangling retry loop behind.
type RetryHandler struct {
	config     RetryConfig
	classifier *Classifier

	// onRetry, when set, observes every scheduled retry before its backoff
	// sleep starts. attempt is the 1-based attempt that just failed.
	onRetry func(attempt int, err error, delay time.Duration)
}

// NewRetryHandler creates a retry handler, applying defaults for unset config
// fields. A nil RetryableStatusCodes slice selects the default retryable set;
// an explicitly empty slice disables status based retries.
func NewRetryHandler(config RetryConfig) *RetryHandler {
	defaults := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = defaults.RetryableStatusCodes
	}

	return &RetryHandler{
		config:     config,
		classifier: NewClassifier(config.RetryableStatusCodes),
	}
}

// Execute runs op, retrying classified-retryable failures until MaxAttempts
// is reached. Intermediate failures are never surfaced; the caller sees the
// first success or the final classified failure. MaxAttempts of 1 performs
// exactly one try with no sleep.
func (h *RetryHandler) Execute(ctx context.Context, op func(context.Context) (*Response, error)) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := op(ctx)
		if err == nil {
			return resp, nil
		}

		cerr := h.classifier.Classify(err)
		if attempt >= h.config.MaxAttempts || !cerr.Retryable {
			return nil, cerr
		}

		delay := h.delayFor(attempt)
		if h.onRetry != nil {
			h.onRetry(attempt, cerr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, h.classifier.Classify(ctx.Err())
		case <-timer.C:
		}
	}
}

// Classifier exposes the handler's error classifier so the orchestrator can
// classify failures consistently with the retry decisions it made.
func (h *RetryHandler) Classifier() *Classifier {
	return h.classifier
}

// delayFor returns the backoff after the given 1-based failed attempt:
// min(BaseDelay * BackoffMultiplier^(attempt-1), MaxDelay).
func (h *RetryHandler) delayFor(attempt int) time.Duration {
	return backoff.Delay(attempt-1, h.config.BaseDelay, h.config.MaxDelay, h.config.BackoffMultiplier, h.config.Jitter)
}
