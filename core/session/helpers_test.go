package session_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/core/kvstore"
	"github.com/dmitrymomot/authsession/core/session"
)

const (
	chrome99  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.84 Safari/537.36"
	chrome100 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.75 Safari/537.36"
	chrome101 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.41 Safari/537.36"
	firefox   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:100.0) Gecko/20100101 Firefox/100.0"
)

const day = 24 * time.Hour

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyKV fails selected operations on demand.
type flakyKV struct {
	*kvstore.MemoryStore
	failWrites bool
	failReads  bool
}

func (f *flakyKV) HSet(ctx context.Context, key string, values map[string]string) error {
	if f.failWrites {
		return errBoom
	}
	return f.MemoryStore.HSet(ctx, key, values)
}

func (f *flakyKV) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if f.failWrites {
		return 0, errBoom
	}
	return f.MemoryStore.SAdd(ctx, key, members...)
}

func (f *flakyKV) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if f.failWrites {
		return 0, errBoom
	}
	return f.MemoryStore.SRem(ctx, key, members...)
}

func (f *flakyKV) Del(ctx context.Context, keys ...string) (int64, error) {
	if f.failWrites {
		return 0, errBoom
	}
	return f.MemoryStore.Del(ctx, keys...)
}

func (f *flakyKV) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if f.failReads {
		return false, errBoom
	}
	return f.MemoryStore.SIsMember(ctx, key, member)
}

// mockAccounts implements session.AccountStore for testing
type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) PendingVerification(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockAccounts) SetPendingVerification(ctx context.Context, userID uuid.UUID, expiry int64) error {
	args := m.Called(ctx, userID, expiry)
	return args.Error(0)
}

func (m *mockAccounts) ClearPendingVerification(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type testEnv struct {
	clock      *fakeClock
	kv         *flakyKV
	cfg        session.Config
	codec      *session.Codec
	store      *session.Store
	validator  *session.Validator
	challenger *session.Challenger
	svc        *session.Service
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newClock()
	kv := &flakyKV{MemoryStore: kvstore.NewMemoryStore(kvstore.WithClock(clock.Now))}
	cfg := session.DefaultConfig("test-secret")
	opts := []session.Option{session.WithClock(clock.Now)}

	codec, err := session.NewCodec(cfg, opts...)
	require.NoError(t, err)
	store := session.NewStore(kv, opts...)
	refresher := session.NewRefresher(codec, store, opts...)

	svc, err := session.NewService(cfg, kv, nil, opts...)
	require.NoError(t, err)

	return &testEnv{
		clock:      clock,
		kv:         kv,
		cfg:        cfg,
		codec:      codec,
		store:      store,
		validator:  session.NewValidator(store, codec, refresher, opts...),
		challenger: session.NewChallenger(store, session.NewKVAccountStore(kv, opts...), cfg, opts...),
		svc:        svc,
	}
}

// createSession stores a session expiring after ttl with the given attributes.
func (e *testEnv) createSession(t *testing.T, userID uuid.UUID, ttl time.Duration, attrs session.Attributes) int64 {
	t.Helper()

	expiry := e.clock.Now().Add(ttl).Unix()
	require.NoError(t, e.store.Create(context.Background(), userID, expiry, attrs))
	return expiry
}

func indexKey(userID uuid.UUID) string {
	return "sessions:" + userID.String()
}

func recordKey(userID uuid.UUID, expiry int64) string {
	return "session:" + userID.String() + ":" + strconv.FormatInt(expiry, 10)
}
