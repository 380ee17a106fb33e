package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/core/kvstore"
)

// AccountStore holds the account-level pointer to the session that carries
// a user's pending verification code. At most one pointer exists per user.
type AccountStore interface {
	// PendingVerification returns the expiry of the challenged session; ok is false if none.
	PendingVerification(ctx context.Context, userID uuid.UUID) (expiry int64, ok bool, err error)
	// SetPendingVerification replaces the pointer.
	SetPendingVerification(ctx context.Context, userID uuid.UUID, expiry int64) error
	// ClearPendingVerification removes the pointer; removing a missing pointer is not an error.
	ClearPendingVerification(ctx context.Context, userID uuid.UUID) error
}

const (
	accountFieldSession  = "verify_session"
	accountFieldIssuedAt = "verify_issued_at"
)

// KVAccountStore keeps the pointer as two fields of an account hash in the
// same key-value store as the sessions, at <prefix>account:<user>.
type KVAccountStore struct {
	kv     kvstore.Store
	prefix string
	now    func() time.Time
}

var _ AccountStore = (*KVAccountStore)(nil)

// NewKVAccountStore creates a KVAccountStore. Only WithKeyPrefix and WithClock apply.
func NewKVAccountStore(kv kvstore.Store, opts ...Option) *KVAccountStore {
	o := applyOptions(opts)
	return &KVAccountStore{kv: kv, prefix: o.keyPrefix, now: o.now}
}

func (s *KVAccountStore) key(userID uuid.UUID) string {
	return s.prefix + "account:" + userID.String()
}

func (s *KVAccountStore) PendingVerification(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	v, err := s.kv.HGet(ctx, s.key(userID), accountFieldSession)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	expiry, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return expiry, true, nil
}

func (s *KVAccountStore) SetPendingVerification(ctx context.Context, userID uuid.UUID, expiry int64) error {
	return s.kv.HSet(ctx, s.key(userID), map[string]string{
		accountFieldSession:  strconv.FormatInt(expiry, 10),
		accountFieldIssuedAt: strconv.FormatInt(s.now().Unix(), 10),
	})
}

func (s *KVAccountStore) ClearPendingVerification(ctx context.Context, userID uuid.UUID) error {
	_, err := s.kv.HDel(ctx, s.key(userID), accountFieldSession, accountFieldIssuedAt)
	return err
}
