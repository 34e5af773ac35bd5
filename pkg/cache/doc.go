// Package cache stores dataset-server rows responses in Redis.
//
// A cached entry is keyed by the request path and its sorted query
// parameters, so the same dataset/config/split/offset/length always maps to
// the same key. Entries live for the upstream Cache-Control max-age, else
// until the Expires header, else for the manager's fallback TTL.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	key := cache.Key{
//		Endpoint:    "/rows",
//		QueryParams: url.Values{"dataset": {"org/name"}, "offset": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch and manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - rowsite_cache_lookups_total{result}
//   - rowsite_cache_stored_bytes_total
//   - rowsite_cache_errors_total{op}
package cache
