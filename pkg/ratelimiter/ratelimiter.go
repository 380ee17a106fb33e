package ratelimiter

import (
	"context"
	"errors"
	"time"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
}

// Store keeps bucket state. ConsumeTokens refills the bucket, then takes
// tokens only when enough are available. remaining is negative when the
// request was refused.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Config describes a token bucket.
type Config struct {
	Capacity       int
	RefillRate     int
	RefillInterval time.Duration
}

// Validate reports an invalid bucket definition.
func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("capacity must be positive"))
	case c.RefillRate <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("refill rate must be positive"))
	case c.RefillInterval <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("refill interval must be positive"))
	}
	return nil
}

// Result is the outcome of a single check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time

	now time.Time
}

// Allowed reports whether the request may proceed.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is how long a refused caller should wait.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(r.now), 0)
}

// Bucket implements RateLimiter on top of a Store.
type Bucket struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// BucketOption configures a Bucket.
type BucketOption func(*Bucket)

// WithClock replaces time.Now when computing RetryAfter.
func WithClock(now func() time.Time) BucketOption {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBucket validates cfg and returns a limiter.
func NewBucket(store Store, cfg Config, opts ...BucketOption) (*Bucket, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("store is required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Bucket{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Allow consumes one token.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens at once.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 || n > b.cfg.Capacity {
		return nil, ErrInvalidTokenCount
	}

	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.cfg)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return &Result{
		Limit:     b.cfg.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt,
		now:       b.now(),
	}, nil
}

// Reset drops the bucket of key, restoring full capacity.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
