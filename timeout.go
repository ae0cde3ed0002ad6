package tangguh

import (
	"context"
	"errors"
)

// TimeoutHandler races an operation against a per attempt deadline. The
// deadline is threaded into the operation as a context, so the losing side of
// the race is actually cancelled rather than left running: a timed-out
// transport call aborts its connection instead of leaking it.
type TimeoutHandler struct {
	config TimeoutConfig
}

// NewTimeoutHandler creates a timeout handler, applying defaults for unset
// config fields.
func NewTimeoutHandler(config TimeoutConfig) *TimeoutHandler {
	defaults := DefaultTimeoutConfig()
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaults.ConnectionTimeout
	}
	return &TimeoutHandler{config: config}
}

// Run executes op under the request timeout. Whichever finishes first wins:
// op's own result, or a timeout-classified failure once the deadline elapses.
// Cancellation of the parent context is surfaced as the parent's error, not
// as a timeout.
func (h *TimeoutHandler) Run(ctx context.Context, op func(context.Context) (*Response, error)) (*Response, error) {
	tctx, cancel := context.WithTimeout(ctx, h.config.RequestTimeout)
	defer cancel()

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := op(tctx)
		done <- outcome{resp, err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return nil, newTimeoutError(out.err)
		}
		return out.resp, out.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, newTimeoutError(tctx.Err())
	}
}
