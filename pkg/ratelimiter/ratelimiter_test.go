package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *ratelimiter.MemoryStore, *clock) {
	t.Helper()

	c := &clock{now: time.Unix(1_700_000_000, 0)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreClock(c.Now))
	limiter, err := ratelimiter.NewBucket(store, cfg, ratelimiter.WithClock(c.Now))
	require.NoError(t, err)
	return limiter, store, c
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}.Validate())
	assert.ErrorIs(t, ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}.Validate(), ratelimiter.ErrInvalidConfig)
	assert.ErrorIs(t, ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}.Validate(), ratelimiter.ErrInvalidConfig)
	assert.ErrorIs(t, ratelimiter.Config{Capacity: 1, RefillRate: 1}.Validate(), ratelimiter.ErrInvalidConfig)

	_, err := ratelimiter.NewBucket(nil, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestBucket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

	t.Run("exhausts capacity then refuses", func(t *testing.T) {
		t.Parallel()
		limiter, _, _ := newLimiter(t, cfg)

		for i := 2; i >= 0; i-- {
			res, err := limiter.Allow(ctx, "k")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, i, res.Remaining)
		}

		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, time.Minute, res.RetryAfter())
	})

	t.Run("refused requests consume nothing", func(t *testing.T) {
		t.Parallel()
		limiter, _, c := newLimiter(t, cfg)

		for range 10 {
			_, err := limiter.Allow(ctx, "k")
			require.NoError(t, err)
		}

		c.Advance(time.Minute)
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("refills up to capacity", func(t *testing.T) {
		t.Parallel()
		limiter, _, c := newLimiter(t, cfg)

		_, err := limiter.AllowN(ctx, "k", 3)
		require.NoError(t, err)

		c.Advance(time.Hour)
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		limiter, _, _ := newLimiter(t, cfg)

		_, err := limiter.AllowN(ctx, "a", 3)
		require.NoError(t, err)

		res, err := limiter.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("reset restores capacity", func(t *testing.T) {
		t.Parallel()
		limiter, _, _ := newLimiter(t, cfg)

		_, err := limiter.AllowN(ctx, "k", 3)
		require.NoError(t, err)
		require.NoError(t, limiter.Reset(ctx, "k"))

		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	})

	t.Run("invalid token count", func(t *testing.T) {
		t.Parallel()
		limiter, _, _ := newLimiter(t, cfg)

		_, err := limiter.AllowN(ctx, "k", 0)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
		_, err = limiter.AllowN(ctx, "k", 4)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		limiter, _, _ := newLimiter(t, cfg)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := limiter.Allow(cctx, "k")
		assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
	})
}

func TestBucket_Concurrent(t *testing.T) {
	t.Parallel()

	limiter, _, _ := newLimiter(t, ratelimiter.Config{Capacity: 50, RefillRate: 1, RefillInterval: time.Hour})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(context.Background(), "shared")
			if err == nil && res.Allowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	limiter, store, c := newLimiter(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	_, err := limiter.Allow(context.Background(), "old")
	require.NoError(t, err)

	c.Advance(2 * time.Hour)
	_, err = limiter.Allow(context.Background(), "fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, store.RemoveStale())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Run(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx)() }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
