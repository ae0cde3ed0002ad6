package tangguh

import (
	"sync/atomic"
	"time"
)

// CircuitBreaker is a per-route failure isolation gate. It starts Closed,
// opens after FailureThreshold consecutive failures, and lazily moves to
// HalfOpen on the next Allow once RecoveryTimeout has elapsed since the last
// failure. All transitions are atomic; the breaker is safe for concurrent use.
//
// While HalfOpen every concurrent caller is let through rather than gating a
// single probe; a failed probe re-opens the circuit, a successful one closes it.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int64
	failures    int64
	lastFailure int64
}

// NewCircuitBreaker creates a circuit breaker, applying defaults for unset
// config fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = DefaultCircuitBreakerConfig().RecoveryTimeout
	}
	if config.ExpectedErrorRate == 0 {
		config.ExpectedErrorRate = DefaultCircuitBreakerConfig().ExpectedErrorRate
	}

	return &CircuitBreaker{
		config: config,
		state:  int64(StateClosed),
	}
}

// Allow reports whether a call may proceed. An Open breaker whose recovery
// timeout has elapsed transitions to HalfOpen and lets the call through.
func (cb *CircuitBreaker) Allow() bool {
	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		return true
	case StateOpen:
		lastFailure := atomic.LoadInt64(&cb.lastFailure)
		if time.Now().UnixNano()-lastFailure >= int64(cb.config.RecoveryTimeout) {
			if atomic.CompareAndSwapInt64(&cb.state, int64(StateOpen), int64(StateHalfOpen)) {
				return true
			}
			// Lost the race; whoever won is either HalfOpen or re-Open.
			return CircuitState(atomic.LoadInt64(&cb.state)) == StateHalfOpen
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the breaker to Closed with a zero failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt64(&cb.state, int64(StateClosed))
	atomic.StoreInt64(&cb.failures, 0)
}

// RecordFailure counts a failure, opening the circuit once the threshold is
// reached. A failure while HalfOpen re-opens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	now := time.Now().UnixNano()
	atomic.StoreInt64(&cb.lastFailure, now)

	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		failures := atomic.AddInt64(&cb.failures, 1)
		if failures >= int64(cb.config.FailureThreshold) {
			atomic.StoreInt64(&cb.state, int64(StateOpen))
		}
	case StateHalfOpen:
		atomic.AddInt64(&cb.failures, 1)
		atomic.StoreInt64(&cb.state, int64(StateOpen))
	case StateOpen:
		// Already open; the fresh lastFailure stamp extends the cooldown.
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(atomic.LoadInt64(&cb.state))
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt64(&cb.failures))
}
