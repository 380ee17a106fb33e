// Package ratelimiter provides token bucket rate limiting with a pluggable store.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request consumes tokens; a request that finds too few
// is refused without consuming anything.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//
//	result, err := limiter.Allow(ctx, "user:"+userID.String())
//	if !result.Allowed() {
//		// wait result.RetryAfter()
//	}
//
// MemoryStore keeps buckets in process memory. Run its cleanup loop in an
// errgroup to drop buckets nobody touched for an hour:
//
//	g.Go(store.Run(ctx))
package ratelimiter
