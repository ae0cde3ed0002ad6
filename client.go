package tangguh

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client is a resilient outbound API client. Every logical route (method plus
// endpoint) owns its own circuit breaker, retry handler and timeout handler,
// created lazily on first use and kept for the life of the client, so a
// misbehaving route is isolated from healthy ones. A single Client is safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string

	retry   RetryConfig
	breaker CircuitBreakerConfig
	timeout TimeoutConfig

	fallbacks  *FallbackStore
	routes     *routeRegistry
	middleware []Middleware
	limiter    *rate.Limiter
	metrics    *MetricsCollector
	debug      *DebugConfig
	logger     Logger

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		retry:     DefaultRetryConfig(),
		breaker:   DefaultCircuitBreakerConfig(),
		timeout:   DefaultTimeoutConfig(),
		fallbacks: NewFallbackStore(),
		routes:    newRouteRegistry(),
		debug:     DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.httpClient == nil {
		client.httpClient = newHTTPClient(client.timeout.ConnectionTimeout)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// newHTTPClient builds the default transport. The connection timeout bounds
// dialing only; per attempt deadlines come from the TimeoutHandler context.
func newHTTPClient(connectionTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectionTimeout}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Get performs a GET request against endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, endpoint, opts...)
}

// Post performs a POST request with body marshalled as JSON. A nil body sends
// no payload.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	if body != nil {
		opts = append([]RequestOption{WithJSONBody(body)}, opts...)
	}
	return c.Request(ctx, http.MethodPost, endpoint, opts...)
}

// Put performs a PUT request with body marshalled as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	if body != nil {
		opts = append([]RequestOption{WithJSONBody(body)}, opts...)
	}
	return c.Request(ctx, http.MethodPut, endpoint, opts...)
}

// Delete performs a DELETE request against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, opts...)
}

// GetJSON performs a GET request and decodes the response into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, v any, opts ...RequestOption) error {
	resp, err := c.Get(ctx, endpoint, opts...)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}

// PostJSON performs a POST request with a JSON body and decodes the response
// into v.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body, v any, opts ...RequestOption) error {
	resp, err := c.Post(ctx, endpoint, body, opts...)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}

// Request performs one resilient call: circuit breaker gate, then a retry
// loop whose every attempt runs under the route's request timeout, then a
// fallback lookup once everything is exhausted. The caller sees exactly one
// of: a live response, a tagged fallback response, or a single classified
// error.
func (c *Client) Request(ctx context.Context, method, endpoint string, opts ...RequestOption) (*Response, error) {
	start := time.Now()
	rc := newRequestOptions(opts)
	if rc.bodyErr != nil {
		return nil, rc.bodyErr
	}
	key := routeKeyFor(method, endpoint)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debugLogs(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", method, "endpoint", endpoint)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
		defer c.metrics.RecordRequestEnd(method, endpoint)
	}

	if c.limiter != nil && !c.limiter.Allow() {
		if c.debugLogs(c.debug != nil && c.debug.LogRateLimit) {
			c.logger.Warn("Rate limit exceeded", "requestID", requestID, "endpoint", endpoint)
		}
		if c.metrics != nil {
			c.metrics.RecordRateLimited(endpoint)
			c.metrics.RecordError(ErrorTypeRateLimit, method, endpoint)
		}
		return nil, newRateLimitError(endpoint)
	}

	state := c.routes.getOrCreate(key, func() *routeState {
		return c.buildRouteState(method, endpoint, rc)
	})

	if !state.breaker.Allow() {
		if c.debugLogs(c.debug != nil && c.debug.LogCircuit) {
			c.logger.Warn("Circuit breaker open", "requestID", requestID, "endpoint", endpoint)
		}
		if resp, ok := c.fallbackLookup(rc, endpoint, requestID); ok {
			return resp, nil
		}
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeCircuitOpen, method, endpoint)
		}
		return nil, newCircuitOpenError(endpoint)
	}

	resp, err := state.retry.Execute(ctx, func(ctx context.Context) (*Response, error) {
		return state.timeout.Run(ctx, func(ctx context.Context) (*Response, error) {
			return c.exchange(ctx, method, endpoint, rc, state.retry.Classifier())
		})
	})

	duration := time.Since(start)

	if err != nil {
		state.breaker.RecordFailure()
		if c.metrics != nil {
			c.metrics.RecordCircuitBreakerState(key, state.breaker.State())
		}

		cerr := state.retry.Classifier().Classify(err)
		if c.debugLogs(c.debug != nil && c.debug.LogRequests) {
			c.logger.Warn("Request failed", "requestID", requestID, "endpoint", endpoint, "error", cerr.Error())
		}
		if c.metrics != nil {
			if cerr.Timeout {
				c.metrics.RecordTimeout(method, endpoint)
			}
			c.metrics.RecordRequest(method, endpoint, cerr.StatusCode, duration)
			c.metrics.RecordError(cerr.Type, method, endpoint)
		}

		if resp, ok := c.fallbackLookup(rc, endpoint, requestID); ok {
			return resp, nil
		}
		return nil, cerr
	}

	state.breaker.RecordSuccess()
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(key, state.breaker.State())
		c.metrics.RecordRequest(method, endpoint, resp.StatusCode, duration)
	}
	if c.debugLogs(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Request completed", "requestID", requestID, "endpoint", endpoint, "status", resp.StatusCode)
	}
	return resp, nil
}

// Fallbacks returns the client's fallback store so callers can capture
// known-good values after successful calls.
func (c *Client) Fallbacks() *FallbackStore {
	return c.fallbacks
}

// buildRouteState assembles the resilience state for a route on first use,
// merging that call's overrides over the client defaults.
func (c *Client) buildRouteState(method, endpoint string, rc *requestOptions) *routeState {
	retryCfg := mergeRetryConfig(c.retry, rc.retry)
	breakerCfg := mergeBreakerConfig(c.breaker, rc.breaker)
	timeoutCfg := mergeTimeoutConfig(c.timeout, rc.timeout)

	handler := NewRetryHandler(retryCfg)
	handler.onRetry = func(attempt int, err error, delay time.Duration) {
		if c.debugLogs(c.debug != nil && c.debug.LogRetries) {
			c.logger.Info("Scheduling retry", "method", method, "endpoint", endpoint,
				"attempt", attempt+1, "maxAttempts", retryCfg.MaxAttempts, "backoff", delay, "error", err.Error())
		}
		if c.metrics != nil {
			c.metrics.RecordRetry(method, endpoint, attempt)
		}
	}

	return &routeState{
		breaker: NewCircuitBreaker(breakerCfg),
		retry:   handler,
		timeout: NewTimeoutHandler(timeoutCfg),
	}
}

// fallbackLookup resolves the per-call fallback key into a tagged response.
func (c *Client) fallbackLookup(rc *requestOptions, endpoint, requestID string) (*Response, bool) {
	if rc.fallbackKey == "" || c.fallbacks == nil {
		return nil, false
	}
	value, ok := c.fallbacks.Get(rc.fallbackKey)
	if !ok {
		return nil, false
	}
	if c.debugLogs(c.debug != nil && c.debug.LogFallback) {
		c.logger.Info("Serving fallback data", "requestID", requestID, "endpoint", endpoint, "key", rc.fallbackKey)
	}
	if c.metrics != nil {
		c.metrics.RecordFallbackHit(endpoint, rc.fallbackKey)
	}
	return &Response{Data: value, Source: SourceFallback}, true
}

// exchange issues one HTTP attempt: build the request, run it through the
// middleware chain, and normalize the outcome. Non-2xx statuses become
// classified errors carrying the status and any Retry-After hint.
func (c *Client) exchange(ctx context.Context, method, endpoint string, rc *requestOptions, classifier *Classifier) (*Response, error) {
	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range rc.headers {
		req.Header[key] = values
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifier.ClassifyStatus(resp.StatusCode, resp.Header)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
		Source:     SourceLive,
	}
	if isJSONContentType(resp.Header.Get("Content-Type")) && len(raw) > 0 {
		var data any
		if jsonErr := json.Unmarshal(raw, &data); jsonErr == nil {
			out.Data = data
			return out, nil
		}
	}
	out.Data = string(raw)
	return out, nil
}

// roundTrip runs the request through the middleware chain, innermost last.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripper(RoundTripperFunc(c.httpClient.Do))
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}
	return current.RoundTrip(req)
}

func (c *Client) resolveURL(endpoint string) string {
	if c.baseURL == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// debugLogs reports whether a debug area should emit through the logger.
func (c *Client) debugLogs(areaEnabled bool) bool {
	return c.debug != nil && c.debug.Enabled && areaEnabled && c.logger != nil
}

func isJSONContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "application/json") || strings.Contains(contentType, "+json")
}

// DecodeJSON unmarshals the response into v. Fallback responses, which carry
// a stored value instead of raw bytes, are round-tripped through JSON so v
// gets the same shape a live response would have produced.
func (r *Response) DecodeJSON(v any) error {
	if r.Source == SourceFallback && r.Body == nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	}
	return json.Unmarshal(r.Body, v)
}
