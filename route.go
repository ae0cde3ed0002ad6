package tangguh

import "sync"

// routeState bundles the resilience state owned by one logical route. Each
// route gets its own circuit breaker, retry handler and timeout handler so a
// failing route never poisons its neighbours.
type routeState struct {
	breaker *CircuitBreaker
	retry   *RetryHandler
	timeout *TimeoutHandler
}

// routeRegistry lazily creates and caches routeState per route key. Creation
// is synchronized with a double-checked lock so concurrent first use of a
// route yields exactly one state object.
type routeRegistry struct {
	mu     sync.RWMutex
	routes map[string]*routeState
}

func newRouteRegistry() *routeRegistry {
	return &routeRegistry{routes: make(map[string]*routeState)}
}

func (r *routeRegistry) getOrCreate(key string, build func() *routeState) *routeState {
	r.mu.RLock()
	state, ok := r.routes[key]
	r.mu.RUnlock()
	if ok {
		return state
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.routes[key]; ok {
		return state
	}
	state = build()
	r.routes[key] = state
	return state
}

func (r *routeRegistry) get(key string) (*routeState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.routes[key]
	return state, ok
}

func (r *routeRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// routeKeyFor identifies the logical resource all resilience state is keyed
// under.
func routeKeyFor(method, endpoint string) string {
	return method + " " + endpoint
}

// CircuitState reports the breaker state for a route, if that route has been
// used. Handy for health endpoints and tests.
func (c *Client) CircuitState(method, endpoint string) (CircuitState, bool) {
	state, ok := c.routes.get(routeKeyFor(method, endpoint))
	if !ok {
		return StateClosed, false
	}
	return state.breaker.State(), true
}
