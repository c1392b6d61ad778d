// Package cache provides an optional Redis-backed HTTP response cache for
// character list pages.
//
// The cache honours the freshness information returned by the API:
//
// - Expires and Cache-Control max-age define how long an entry is fresh
// - Fresh entries are served without a request
// - Stale entries that carry an ETag or Last-Modified are kept for a
//   revalidation window and sent back as conditional requests
// - A 304 Not Modified response renews the stored entry
//
// The cache never stands in for a failed request: a transport error is
// always reported to the caller.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Endpoint: "/api/character/",
//		Query:    url.Values{"page": []string{"2"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Metrics
//
//   - rickmorty_cache_hits_total{state} - hits by freshness (fresh, stale)
//   - rickmorty_cache_misses_total - misses
//   - rickmorty_cache_stored_bytes - bytes written to Redis
//   - rickmorty_conditional_requests_total - conditional requests sent
//   - rickmorty_not_modified_total - 304 responses served from cache
//   - rickmorty_cache_errors_total{operation} - Redis errors
package cache
