package kvstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/core/kvstore"
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

func newStore() (*kvstore.MemoryStore, *clock) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	return kvstore.NewMemoryStore(kvstore.WithClock(c.Now)), c
}

func TestMemoryStore_Sets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("adds and removes members", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		n, err := s.SAdd(ctx, "set", "a", "b", "a")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.SAdd(ctx, "set", "b")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		members, err := s.SMembers(ctx, "set")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, members)

		ok, err := s.SIsMember(ctx, "set", "a")
		require.NoError(t, err)
		assert.True(t, ok)

		card, err := s.SCard(ctx, "set")
		require.NoError(t, err)
		assert.Equal(t, int64(2), card)

		n, err = s.SRem(ctx, "set", "a", "zzz")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("removing the last member deletes the key", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		_, err := s.SAdd(ctx, "set", "a")
		require.NoError(t, err)
		_, err = s.SRem(ctx, "set", "a")
		require.NoError(t, err)

		ok, err := s.Exists(ctx, "set")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("members of a missing key is an empty slice", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		members, err := s.SMembers(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("rejects set operations on a hash", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"f": "v"}))
		_, err := s.SAdd(ctx, "h", "a")
		assert.ErrorIs(t, err, kvstore.ErrWrongType)
	})
}

func TestMemoryStore_Hashes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sets and reads fields", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, s.HSet(ctx, "h", map[string]string{"b": "3"}))

		v, err := s.HGet(ctx, "h", "b")
		require.NoError(t, err)
		assert.Equal(t, "3", v)

		all, err := s.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "3"}, all)
	})

	t.Run("missing field is not found", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		_, err := s.HGet(ctx, "h", "a")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"b": "1"}))
		_, err = s.HGet(ctx, "h", "a")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("deleting the last field deletes the key", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore()

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1"}))
		n, err := s.HDel(ctx, "h", "a", "b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		ok, err := s.Exists(ctx, "h")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMemoryStore_ExpireAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expires keys when the clock passes", func(t *testing.T) {
		t.Parallel()
		s, c := newStore()

		_, err := s.SAdd(ctx, "set", "a")
		require.NoError(t, err)
		ok, err := s.ExpireAt(ctx, "set", c.Now().Add(time.Minute), kvstore.ExpireAlways)
		require.NoError(t, err)
		assert.True(t, ok)

		c.Advance(59 * time.Second)
		exists, err := s.Exists(ctx, "set")
		require.NoError(t, err)
		assert.True(t, exists)

		c.Advance(time.Second)
		exists, err = s.Exists(ctx, "set")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing key is not updated", func(t *testing.T) {
		t.Parallel()
		s, c := newStore()

		ok, err := s.ExpireAt(ctx, "missing", c.Now().Add(time.Minute), kvstore.ExpireAlways)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("past time deletes the key", func(t *testing.T) {
		t.Parallel()
		s, c := newStore()

		require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1"}))
		ok, err := s.ExpireAt(ctx, "h", c.Now().Add(-time.Second), kvstore.ExpireAlways)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, s.Keys())
	})

	t.Run("nx only applies to keys without expiration", func(t *testing.T) {
		t.Parallel()
		s, c := newStore()
		first := c.Now().Add(time.Hour)

		_, err := s.SAdd(ctx, "set", "a")
		require.NoError(t, err)

		ok, err := s.ExpireAt(ctx, "set", first, kvstore.ExpireNX)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ExpireAt(ctx, "set", first.Add(time.Hour), kvstore.ExpireNX)
		require.NoError(t, err)
		assert.False(t, ok)

		at, _ := s.TTL("set")
		assert.True(t, at.Equal(first))
	})

	t.Run("gt only extends", func(t *testing.T) {
		t.Parallel()
		s, c := newStore()
		first := c.Now().Add(time.Hour)

		_, err := s.SAdd(ctx, "set", "a")
		require.NoError(t, err)

		ok, err := s.ExpireAt(ctx, "set", first, kvstore.ExpireGT)
		require.NoError(t, err)
		assert.False(t, ok, "gt never applies to a key without expiration")

		_, err = s.ExpireAt(ctx, "set", first, kvstore.ExpireAlways)
		require.NoError(t, err)

		ok, err = s.ExpireAt(ctx, "set", first.Add(-time.Minute), kvstore.ExpireGT)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.ExpireAt(ctx, "set", first.Add(time.Minute), kvstore.ExpireGT)
		require.NoError(t, err)
		assert.True(t, ok)

		at, _ := s.TTL("set")
		assert.True(t, at.Equal(first.Add(time.Minute)))
	})
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	t.Parallel()

	s, _ := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SAdd(ctx, "set", "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Del(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, _ := newStore()
	_, err := s.SAdd(ctx, "a", "1")
	require.NoError(t, err)
	require.NoError(t, s.HSet(ctx, "b", map[string]string{"f": "v"}))

	n, err := s.Del(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Empty(t, s.Keys())
}
