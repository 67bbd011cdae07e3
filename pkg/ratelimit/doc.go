// Package ratelimit provides token bucket rate limiting with in-memory and
// Redis storage and an HTTP middleware.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. A request takes one token; an empty bucket denies it
// without consuming anything.
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimit.NewBucket(store, ratelimit.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//
//	r.With(ratelimit.Middleware(limiter, userKey)).Post("/api/create-ai-sandbox", create)
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every response and answers 429 with Retry-After and a
// JSON error body when the bucket is empty. Requests whose key is empty are
// passed through.
//
// Use RedisStore when several replicas must share the budget.
package ratelimit
