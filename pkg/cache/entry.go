package cache

import (
	"time"
)

// Entry is a cached value together with its expiry.
// Entries are owned by the Manager and never handed to callers.
type Entry[V any] struct {
	// Value is the cached payload
	Value V

	// Expires is the instant from which the entry is stale
	Expires time.Time

	// CachedAt is when the entry was stored
	CachedAt time.Time
}

// IsExpired returns true once now has reached Expires.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the time left until expiration at now.
// Returns 0 if already expired.
func (e *Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
