package tangguh

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTimeoutHandlerDefaults(t *testing.T) {
	h := NewTimeoutHandler(TimeoutConfig{})

	if h.config.RequestTimeout != 30*time.Second {
		t.Errorf("Expected default RequestTimeout=30s, got %v", h.config.RequestTimeout)
	}
	if h.config.ConnectionTimeout != 10*time.Second {
		t.Errorf("Expected default ConnectionTimeout=10s, got %v", h.config.ConnectionTimeout)
	}
}

func TestTimeoutOperationWins(t *testing.T) {
	h := NewTimeoutHandler(TimeoutConfig{RequestTimeout: time.Second})

	resp, err := h.Run(context.Background(), func(ctx context.Context) (*Response, error) {
		return &Response{StatusCode: 200, Source: SourceLive}, nil
	})

	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestTimeoutOperationFailurePropagates(t *testing.T) {
	h := NewTimeoutHandler(TimeoutConfig{RequestTimeout: time.Second})

	boom := errors.New("transport exploded")
	_, err := h.Run(context.Background(), func(ctx context.Context) (*Response, error) {
		return nil, boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected the operation's failure propagated, got %v", err)
	}
}

func TestTimeoutDeadlineWins(t *testing.T) {
	// An operation that never resolves: the deadline must win at roughly the
	// configured timeout, not earlier.
	h := NewTimeoutHandler(TimeoutConfig{RequestTimeout: 100 * time.Millisecond})

	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	_, err := h.Run(context.Background(), func(ctx context.Context) (*Response, error) {
		<-block
		return nil, nil
	})
	elapsed := time.Since(start)

	var cerr *ClassifiedError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected a classified error, got %v", err)
	}
	if !cerr.Timeout {
		t.Error("Expected Timeout=true")
	}
	if !cerr.Retryable {
		t.Error("Expected timeout to be retryable")
	}
	if cerr.Message != "Request timeout" {
		t.Errorf("Expected message 'Request timeout', got %q", cerr.Message)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("Deadline fired too early: %v", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("Deadline fired too late: %v", elapsed)
	}
}

func TestTimeoutCancelsOperationContext(t *testing.T) {
	h := NewTimeoutHandler(TimeoutConfig{RequestTimeout: 50 * time.Millisecond})

	opCtxDone := make(chan struct{})
	_, err := h.Run(context.Background(), func(ctx context.Context) (*Response, error) {
		<-ctx.Done()
		close(opCtxDone)
		return nil, ctx.Err()
	})

	var cerr *ClassifiedError
	if !errors.As(err, &cerr) || !cerr.Timeout {
		t.Fatalf("Expected a timeout classification, got %v", err)
	}

	select {
	case <-opCtxDone:
	case <-time.After(time.Second):
		t.Fatal("Expected the operation's context to be cancelled at the deadline")
	}
}

func TestTimeoutParentCancellationIsNotATimeout(t *testing.T) {
	h := NewTimeoutHandler(TimeoutConfig{RequestTimeout: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	block := make(chan struct{})
	defer close(block)

	_, err := h.Run(ctx, func(ctx context.Context) (*Response, error) {
		<-block
		return nil, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	var cerr *ClassifiedError
	if errors.As(err, &cerr) && cerr.Timeout {
		t.Error("Parent cancellation must not be reported as a timeout")
	}
}
