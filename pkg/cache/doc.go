// Package cache provides the client's time-boxed in-memory response cache.
//
// The manager implements the caching contract the client relies on:
//
// - Every entry carries an absolute expiry (now + TTL at Set time)
// - An expired entry is never returned; it is evicted on the next lookup
// - Set always overwrites and restarts the TTL
// - No background sweeper; memory grows with the number of distinct keys
// - Deterministic key generation
//
// # Basic Usage
//
//	// Create cache manager for pages of records
//	manager := cache.NewManager[[]satellite.Record](
//		cache.WithCloner(satellite.Clone),
//	)
//
//	// Create cache key
//	key := cache.PageKey("active", 500, 0)
//
//	// Get from cache
//	records, ok := manager.Get(key)
//	if !ok {
//		// Cache miss - fetch from the active origin
//	}
//
//	// Store for one minute
//	manager.Set(key, records, time.Minute)
//
// # Invalidation
//
//	// Drop every cached page of a group after a server-side refresh
//	manager.PurgePrefix(cache.GroupPrefix("active"))
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - satcat_cache_hits_total - Cache hits
//   - satcat_cache_misses_total - Cache misses (including stale entries)
//   - satcat_cache_evictions_total{reason} - Removed entries (expired, deleted, purged)
//   - satcat_cache_entries - Stored entries
package cache
