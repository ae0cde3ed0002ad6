package tangguh

import "sync"

// FallbackStore is a keyed registry of last-known-good response values,
// substituted as a last resort when retries are exhausted or a circuit is
// open. Entries are written explicitly by the caller and never expire; the
// caller owns key lifecycle. Safe for concurrent use.
type FallbackStore struct {
	mu    sync.RWMutex
	store map[string]any
}

// NewFallbackStore creates an empty fallback store.
func NewFallbackStore() *FallbackStore {
	return &FallbackStore{store: make(map[string]any)}
}

// Set stores value under key, replacing any previous entry.
func (f *FallbackStore) Set(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = value
}

// Get retrieves the value stored under key.
func (f *FallbackStore) Get(key string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.store[key]
	return value, ok
}

// Has reports whether key holds a value.
func (f *FallbackStore) Has(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.store[key]
	return ok
}

// Delete removes the entry under key.
func (f *FallbackStore) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, key)
}

// Clear removes all entries.
func (f *FallbackStore) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = make(map[string]any)
}

// Len returns the number of stored entries.
func (f *FallbackStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.store)
}
