package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by freshness state (fresh, stale).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"state"},
	)

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// StoredBytes tracks bytes written to the cache.
	StoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_stored_bytes",
			Help: "Total number of bytes written to the response cache",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match/If-Modified-Since.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rickmorty_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// NotModifiedResponses tracks 304 responses served from cache.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rickmorty_not_modified_total",
			Help: "Total number of 304 Not Modified responses served from cache",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rickmorty_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
