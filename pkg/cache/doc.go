// Package cache is a small in-process LRU cache with per-entry expiry.
//
// It backs short-lived lookups that are expensive upstream: billing
// entitlements per user and web search results per query.
//
//	c := cache.New[string, []Result](256, 10*time.Minute)
//	if v, ok := c.Get(q); ok {
//		return v
//	}
//	c.Put(q, results)
//
// A zero TTL disables expiry. All methods are safe for concurrent use.
package cache
