// Package tangguh is a resilient outbound API client: it wraps HTTP calls
// with per-route failure isolation and automatic remediation so callers see a
// single resolved value, a tagged fallback value, or one classified error.
//
//   - Circuit breaking per route (closed / open / half-open)
//   - Bounded retries with capped exponential backoff, cancellable mid-sleep
//   - Per attempt request timeouts with cancellation propagated to the transport
//   - Error taxonomy (network, timeout, HTTP status, circuit open, unknown)
//   - Keyed fallback store of last known good values
//   - Client side rate limiting, middleware chain, Prometheus metrics,
//     structured debug logging
//
// All resilience state is keyed by logical route (method + endpoint) and
// created lazily on first use, so a failing route never affects its
// neighbours. A single *Client is safe for concurrent use.
//
// Typical usage:
//
//	client := tangguh.New(
//	    tangguh.WithRetryConfig(tangguh.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}),
//	    tangguh.WithCircuitBreakerConfig(tangguh.CircuitBreakerConfig{FailureThreshold: 5}),
//	    tangguh.WithRequestTimeout(10*time.Second),
//	    tangguh.WithMetrics(),
//	)
//
//	resp, err := client.Get(ctx, "https://api.example.com/posts",
//	    tangguh.WithFallbackKey("posts"))
//	if err == nil && !resp.IsFallback() {
//	    client.Fallbacks().Set("posts", resp.Data)
//	}
//
// Requests carry Content-Type: application/json by default; 2xx JSON bodies
// are decoded into Response.Data, other content types are kept as raw text.
package tangguh
