package cache

import (
	"github.com/Sternrassler/sat-catalog-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from memory
	CacheHits = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "satcat_cache_hits_total",
			Help: "Total number of satellite cache hits",
		},
	)

	// CacheMisses tracks lookups that found no live entry
	CacheMisses = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "satcat_cache_misses_total",
			Help: "Total number of satellite cache misses",
		},
	)

	// CacheEvictions tracks removed entries by reason
	CacheEvictions = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "satcat_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "expired", "deleted", "purged"
	)

	// CacheEntries tracks the number of stored entries across caches
	CacheEntries = promauto.With(metrics.Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "satcat_cache_entries",
			Help: "Current number of entries held in satellite caches",
		},
	)
)
