package cache

import (
	"strings"
	"sync"
	"time"
)

// Manager is a time-boxed key/value cache.
// Expired entries are never returned; they are dropped lazily on lookup.
type Manager[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]
	now     func() time.Time
	clone   func(V) V
}

// Option configures a Manager.
type Option[V any] func(*Manager[V])

// WithClock replaces time.Now (for testing).
func WithClock[V any](now func() time.Time) Option[V] {
	return func(m *Manager[V]) {
		m.now = now
	}
}

// WithCloner copies values on Set and Get so callers never alias cached state.
func WithCloner[V any](clone func(V) V) Option[V] {
	return func(m *Manager[V]) {
		m.clone = clone
	}
}

// NewManager creates an empty cache.
func NewManager[V any](opts ...Option[V]) *Manager[V] {
	m := &Manager[V]{
		entries: make(map[string]*Entry[V]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached value for key while it is live.
// A stale entry is deleted and reported as a miss.
func (m *Manager[V]) Get(key Key) (V, bool) {
	v, _, ok := m.GetWithTTL(key)
	return v, ok
}

// GetWithTTL is Get that also returns the time the entry has left.
func (m *Manager[V]) GetWithTTL(key Key) (V, time.Duration, bool) {
	cacheKey := key.String()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[cacheKey]
	if !ok {
		CacheMisses.Inc()
		var zero V
		return zero, 0, false
	}

	if entry.IsExpired(now) {
		delete(m.entries, cacheKey)
		CacheEvictions.WithLabelValues("expired").Inc()
		CacheEntries.Dec()
		CacheMisses.Inc()
		var zero V
		return zero, 0, false
	}

	CacheHits.Inc()
	return m.copy(entry.Value), entry.TTL(now), true
}

// Set stores value under key for ttl, replacing any previous entry.
// A non-positive ttl stores nothing.
func (m *Manager[V]) Set(key Key, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	cacheKey := key.String()
	now := m.now()
	entry := &Entry[V]{
		Value:    m.copy(value),
		Expires:  now.Add(ttl),
		CachedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[cacheKey]; !exists {
		CacheEntries.Inc()
	}
	m.entries[cacheKey] = entry
}

// Delete removes a cache entry.
func (m *Manager[V]) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key.String()]; ok {
		delete(m.entries, key.String())
		CacheEvictions.WithLabelValues("deleted").Inc()
		CacheEntries.Dec()
	}
}

// Purge removes every entry whose key string satisfies match and returns
// the number of removed entries.
func (m *Manager[V]) Purge(match func(key string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k := range m.entries {
		if match(k) {
			delete(m.entries, k)
			removed++
		}
	}

	if removed > 0 {
		CacheEvictions.WithLabelValues("purged").Add(float64(removed))
		CacheEntries.Sub(float64(removed))
	}
	return removed
}

// PurgePrefix removes every entry whose key string starts with prefix.
func (m *Manager[V]) PurgePrefix(prefix string) int {
	return m.Purge(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Len returns the number of stored entries, including stale ones not yet looked up.
func (m *Manager[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager[V]) copy(v V) V {
	if m.clone == nil {
		return v
	}
	return m.clone(v)
}
