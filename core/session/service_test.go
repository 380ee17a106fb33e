package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/core/kvstore"
	"github.com/dmitrymomot/authsession/core/session"
)

func TestService_VerifyOrRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := session.Client{UserAgent: chrome100, IP: "192.0.2.1"}

	t.Run("verifies a fresh session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		token, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)

		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, client)
		require.NoError(t, err)
		assert.Equal(t, session.StatusVerified, res.Status)
		assert.True(t, res.Status.OK())
		assert.Equal(t, session.Identity{UserID: userID, Expiry: token.Expiry}, res.Identity)
		assert.Nil(t, res.Token)
	})

	t.Run("rotates a token close to expiry", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		token, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)

		e.clock.Advance(25 * day)
		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, client)
		require.NoError(t, err)
		require.Equal(t, session.StatusRefreshed, res.Status)
		require.NotNil(t, res.Token)
		assert.Greater(t, res.Token.Expiry, token.Expiry)

		_, err = e.svc.VerifyOrRefresh(ctx, token.Value, client)
		assert.ErrorIs(t, err, session.ErrSessionMissing, "old token is dead")

		res, err = e.svc.VerifyOrRefresh(ctx, res.Token.Value, client)
		require.NoError(t, err)
		assert.Equal(t, session.StatusVerified, res.Status)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		res, err := e.svc.VerifyOrRefresh(ctx, "not-a-token", client)
		assert.Equal(t, session.ErrTokenInvalid, err)
		assert.Equal(t, session.StatusInvalid, res.Status)
	})

	t.Run("blocked session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		token, err := e.svc.CreateSession(ctx, uuid.New(), client)
		require.NoError(t, err)

		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, session.Client{UserAgent: firefox, IP: "192.0.2.1"})
		assert.Equal(t, session.ErrSessionBlocked, err, "internal cause is not exposed")
		assert.Equal(t, session.StatusBlocked, res.Status)

		res, err = e.svc.VerifyOrRefresh(ctx, token.Value, client)
		assert.Equal(t, session.ErrSessionBlocked, err)
		assert.Equal(t, session.StatusBlocked, res.Status)
	})

	t.Run("store failure collapses to a closed error", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		token, err := e.svc.CreateSession(ctx, uuid.New(), client)
		require.NoError(t, err)

		e.kv.failReads = true
		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, client)
		assert.Equal(t, session.ErrStoreUnavailable, err)
		assert.Equal(t, session.StatusServerError, res.Status)
	})

	t.Run("failed repair of a damaged session is a server error", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		token, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)
		_, err = e.kv.Del(ctx, recordKey(userID, token.Expiry))
		require.NoError(t, err)

		e.kv.failWrites = true
		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, client)
		assert.Equal(t, session.ErrStoreWriteFailed, err)
		assert.Equal(t, session.StatusServerError, res.Status)

		e.kv.failWrites = false
		res, err = e.svc.VerifyOrRefresh(ctx, token.Value, client)
		assert.Equal(t, session.ErrSessionMissing, err)
		assert.Equal(t, session.StatusMissing, res.Status)
	})

	t.Run("concurrent requests on one session stay consistent", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		token, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := e.svc.VerifyOrRefresh(ctx, token.Value, client)
				assert.NoError(t, err)
				assert.Equal(t, session.StatusVerified, res.Status)
			}()
		}
		wg.Wait()

		sessions, err := e.svc.Sessions(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})
}

func TestService_CreateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("write failure", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.kv.failWrites = true

		_, err := e.svc.CreateSession(ctx, uuid.New(), session.Client{UserAgent: chrome100})
		assert.Equal(t, session.ErrStoreWriteFailed, err)
	})

	t.Run("with explicit expiry is idempotent", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()
		expiry := e.clock.Now().Add(day).Unix()
		client := session.Client{UserAgent: chrome100, IP: "192.0.2.1"}

		require.NoError(t, e.svc.CreateSessionWithExpiry(ctx, userID, expiry, client))
		require.NoError(t, e.svc.CreateSessionWithExpiry(ctx, userID, expiry, client))

		sessions, err := e.svc.Sessions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, expiry, sessions[0].Expiry)
		assert.Equal(t, "Chrome/100.0 (Windows, desktop)", sessions[0].Device)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	laptop := session.Client{UserAgent: chrome100, IP: "192.0.2.1"}
	phone := session.Client{UserAgent: firefox, IP: "198.51.100.7"}

	t.Run("user without sessions gets a token", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		login, err := e.svc.BeginLogin(ctx, uuid.New(), laptop)
		require.NoError(t, err)
		require.NotNil(t, login.Token)
		assert.Nil(t, login.Ticket)

		res, err := e.svc.VerifyOrRefresh(ctx, login.Token.Value, laptop)
		require.NoError(t, err)
		assert.Equal(t, session.StatusVerified, res.Status)
	})

	t.Run("new device gets a session only after the code", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		existing, err := e.svc.CreateSession(ctx, userID, laptop)
		require.NoError(t, err)
		e.clock.Advance(time.Hour)

		login, err := e.svc.BeginLogin(ctx, userID, phone)
		require.NoError(t, err)
		assert.Nil(t, login.Token)
		require.NotNil(t, login.Ticket)

		_, err = e.svc.VerifyOrRefresh(ctx, login.Ticket.Value, phone)
		assert.Equal(t, session.ErrTokenInvalid, err, "ticket is not a bearer token")

		_, err = e.svc.ConfirmLogin(ctx, login.Ticket.Value, "x", phone)
		assert.Equal(t, session.ErrCodeMismatch, err)

		sessions, err := e.svc.Sessions(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, sessions, 1)

		code, err := e.svc.PendingCode(ctx, session.Identity{UserID: userID, Expiry: existing.Expiry})
		require.NoError(t, err)

		token, err := e.svc.ConfirmLogin(ctx, login.Ticket.Value, code, phone)
		require.NoError(t, err)
		res, err := e.svc.VerifyOrRefresh(ctx, token.Value, phone)
		require.NoError(t, err)
		assert.Equal(t, session.StatusVerified, res.Status)

		_, err = e.svc.ConfirmLogin(ctx, login.Ticket.Value, code, phone)
		assert.Equal(t, session.ErrCodeMismatch, err, "code is consumed")
	})

	t.Run("resend keeps the ticket usable", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		existing, err := e.svc.CreateSession(ctx, userID, laptop)
		require.NoError(t, err)
		e.clock.Advance(time.Hour)

		login, err := e.svc.BeginLogin(ctx, userID, phone)
		require.NoError(t, err)
		require.NotNil(t, login.Ticket)

		require.NoError(t, e.svc.ResendLoginCode(ctx, login.Ticket.Value))
		code, err := e.svc.PendingCode(ctx, session.Identity{UserID: userID, Expiry: existing.Expiry})
		require.NoError(t, err)

		_, err = e.svc.ConfirmLogin(ctx, login.Ticket.Value, code, phone)
		assert.NoError(t, err)
	})

	t.Run("forged or expired ticket", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		_, err := e.svc.CreateSession(ctx, userID, laptop)
		require.NoError(t, err)
		e.clock.Advance(time.Hour)

		_, err = e.svc.ConfirmLogin(ctx, "garbage", "123456", phone)
		assert.Equal(t, session.ErrTokenInvalid, err)
		assert.Equal(t, session.ErrTokenInvalid, e.svc.ResendLoginCode(ctx, "garbage"))

		login, err := e.svc.BeginLogin(ctx, userID, phone)
		require.NoError(t, err)
		require.NotNil(t, login.Ticket)

		e.clock.Advance(time.Hour)
		_, err = e.svc.ConfirmLogin(ctx, login.Ticket.Value, "123456", phone)
		assert.Equal(t, session.ErrTokenInvalid, err)
	})
}

func TestService_Verification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	laptop := session.Client{UserAgent: chrome100, IP: "192.0.2.1"}

	t.Run("first login needs no verification", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		required, err := e.svc.IsVerificationRequired(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, required)
	})

	t.Run("second login is approved from the existing session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		existing, err := e.svc.CreateSession(ctx, userID, laptop)
		require.NoError(t, err)

		required, err := e.svc.IsVerificationRequired(ctx, userID)
		require.NoError(t, err)
		require.True(t, required)

		code, err := e.svc.PendingCode(ctx, session.Identity{UserID: userID, Expiry: existing.Expiry})
		require.NoError(t, err)

		assert.Equal(t, session.ErrCodeMismatch, e.svc.CheckEnteredCode(ctx, userID, "x"))
		require.NoError(t, e.svc.CheckEnteredCode(ctx, userID, code))

		_, err = e.svc.PendingCode(ctx, session.Identity{UserID: userID, Expiry: existing.Expiry})
		assert.Equal(t, session.ErrNoPendingCode, err)
	})

	t.Run("pending code follows a rotated session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		existing, err := e.svc.CreateSession(ctx, userID, laptop)
		require.NoError(t, err)
		required, err := e.svc.IsVerificationRequired(ctx, userID)
		require.NoError(t, err)
		require.True(t, required)

		e.clock.Advance(25 * day)
		res, err := e.svc.VerifyOrRefresh(ctx, existing.Value, laptop)
		require.NoError(t, err)
		require.Equal(t, session.StatusRefreshed, res.Status)

		code, err := e.svc.PendingCode(ctx, res.Identity)
		require.NoError(t, err)
		assert.NoError(t, e.svc.CheckEnteredCode(ctx, userID, code))
	})

	t.Run("issue challenge without pending code", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		assert.Equal(t, session.ErrNoPendingCode, e.svc.IssueChallenge(ctx, uuid.New()))
	})

	t.Run("account store failure is not a mismatch", func(t *testing.T) {
		t.Parallel()
		clock := newClock()
		kv := kvstore.NewMemoryStore(kvstore.WithClock(clock.Now))
		userID := uuid.New()

		accounts := &mockAccounts{}
		accounts.On("PendingVerification", mock.Anything, userID).Return(int64(0), false, errBoom)

		svc, err := session.NewService(session.DefaultConfig("test-secret"), kv, accounts, session.WithClock(clock.Now))
		require.NoError(t, err)

		assert.Equal(t, session.ErrStoreUnavailable, svc.CheckEnteredCode(ctx, userID, "123456"))
	})
}

func TestService_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := session.Client{UserAgent: chrome100, IP: "192.0.2.1"}

	t.Run("logout removes one session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		first, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)
		e.clock.Advance(day)
		second, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)

		require.NoError(t, e.svc.Logout(ctx, session.Identity{UserID: userID, Expiry: first.Expiry}))
		assert.Equal(t, session.ErrSessionMissing, e.svc.Logout(ctx, session.Identity{UserID: userID, Expiry: first.Expiry}))

		_, err = e.svc.VerifyOrRefresh(ctx, first.Value, client)
		assert.Equal(t, session.ErrSessionMissing, err)
		_, err = e.svc.VerifyOrRefresh(ctx, second.Value, client)
		assert.NoError(t, err)
	})

	t.Run("logout all removes every session and pending code", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		for range 3 {
			_, err := e.svc.CreateSession(ctx, userID, client)
			require.NoError(t, err)
			e.clock.Advance(day)
		}
		required, err := e.svc.IsVerificationRequired(ctx, userID)
		require.NoError(t, err)
		require.True(t, required)

		require.NoError(t, e.svc.LogoutAll(ctx, userID))

		sessions, err := e.svc.Sessions(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, sessions)
		assert.Empty(t, e.kv.Keys())
	})

	t.Run("sessions are listed most recent first", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		userID := uuid.New()

		old, err := e.svc.CreateSession(ctx, userID, client)
		require.NoError(t, err)
		e.clock.Advance(day)
		recent, err := e.svc.CreateSession(ctx, userID, session.Client{UserAgent: firefox, IP: "192.0.2.2"})
		require.NoError(t, err)

		sessions, err := e.svc.Sessions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, recent.Expiry, sessions[0].Expiry)
		assert.Equal(t, old.Expiry, sessions[1].Expiry)
		assert.Equal(t, "Firefox/100.0 (Windows, desktop)", sessions[0].Device)
		assert.False(t, sessions[0].Handheld)
	})
}
