package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/core/logger"
)

// Challenger decides whether a new login must be approved from an existing
// session and manages the numeric code that approval relies on.
type Challenger struct {
	store    *Store
	accounts AccountStore
	digits   int
	log      *slog.Logger
}

// NewChallenger creates a Challenger issuing cfg.CodeDigits digit codes.
func NewChallenger(store *Store, accounts AccountStore, cfg Config, opts ...Option) *Challenger {
	o := applyOptions(opts)
	digits := cfg.CodeDigits
	if digits <= 0 {
		digits = 6
	}
	return &Challenger{
		store:    store,
		accounts: accounts,
		digits:   digits,
		log:      o.logger.With(logger.Component("session_challenger")),
	}
}

// Select returns the session that should receive a challenge: the valid,
// non-banned session seen most recently, ties going to the smallest expiry.
// ok is false when the user has no valid session.
func (c *Challenger) Select(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	expiries, err := c.store.List(ctx, userID)
	if err != nil {
		return 0, false, err
	}

	var (
		best       int64
		bestOnline int64
		found      bool
	)
	for _, expiry := range expiries {
		presence, err := c.store.Exists(ctx, userID, expiry)
		if err != nil {
			return 0, false, err
		}
		if presence != PresenceOK {
			continue
		}

		attrs, err := c.store.Get(ctx, userID, expiry)
		if err != nil {
			if errors.Is(err, ErrSessionMissing) {
				continue
			}
			return 0, false, err
		}
		if attrs.Banned {
			continue
		}

		// expiries are ascending, so an equal last-online keeps the smaller expiry
		if !found || attrs.LastOnline > bestOnline {
			best, bestOnline, found = expiry, attrs.LastOnline, true
		}
	}

	return best, found, nil
}

// Issue generates a code, stores it on the session and points the account at
// that session. A code pending on another session is discarded.
func (c *Challenger) Issue(ctx context.Context, userID uuid.UUID, expiry int64) (string, error) {
	code, err := generateCode(c.digits)
	if err != nil {
		return "", errors.Join(ErrStoreWriteFailed, err)
	}

	prev, ok, err := c.accounts.PendingVerification(ctx, userID)
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	if ok && prev != expiry {
		if err := c.store.DeleteField(ctx, userID, prev, FieldCode); err != nil {
			return "", err
		}
	}

	if err := c.store.Update(ctx, userID, expiry, FieldCode, code); err != nil {
		return "", err
	}
	if err := c.accounts.SetPendingVerification(ctx, userID, expiry); err != nil {
		return "", errors.Join(ErrStoreWriteFailed, err)
	}

	c.log.InfoContext(ctx, "verification code issued",
		logger.UserID(userID),
		logger.SessionExpiry(expiry),
	)

	return code, nil
}

// IsChallengeRequired selects a session and issues a code to it.
// It returns false, without side effects, when the user has no valid session.
func (c *Challenger) IsChallengeRequired(ctx context.Context, userID uuid.UUID) (bool, error) {
	expiry, ok, err := c.Select(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	if _, err := c.Issue(ctx, userID, expiry); err != nil {
		return false, err
	}
	return true, nil
}

// Reissue replaces the pending code with a fresh one on the same session.
func (c *Challenger) Reissue(ctx context.Context, userID uuid.UUID) error {
	expiry, _, err := c.pending(ctx, userID)
	if err != nil {
		return err
	}
	_, err = c.Issue(ctx, userID, expiry)
	return err
}

// pending resolves the account pointer to the challenged session. A pointer to
// a session that is gone or banned is cleared and reported as ErrNoPendingCode.
func (c *Challenger) pending(ctx context.Context, userID uuid.UUID) (int64, Attributes, error) {
	expiry, ok, err := c.accounts.PendingVerification(ctx, userID)
	if err != nil {
		return 0, Attributes{}, errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		return 0, Attributes{}, ErrNoPendingCode
	}

	presence, err := c.store.Exists(ctx, userID, expiry)
	if err != nil {
		return 0, Attributes{}, err
	}

	var attrs Attributes
	if presence == PresenceOK {
		attrs, err = c.store.Get(ctx, userID, expiry)
		if err != nil && !errors.Is(err, ErrSessionMissing) {
			return 0, Attributes{}, err
		}
		if err == nil && !attrs.Banned {
			return expiry, attrs, nil
		}
	}

	if err := c.accounts.ClearPendingVerification(ctx, userID); err != nil {
		return 0, Attributes{}, errors.Join(ErrStoreWriteFailed, err)
	}
	c.log.InfoContext(ctx, "dangling verification pointer cleared",
		logger.UserID(userID), logger.SessionExpiry(expiry))
	return 0, Attributes{}, ErrNoPendingCode
}

// CheckEnteredCode compares candidate with the pending code in constant time.
// A match consumes the code. A mismatch changes nothing and returns ErrCodeMismatch.
// A pointer to a session that no longer exists or was banned is cleared and
// treated as a mismatch.
func (c *Challenger) CheckEnteredCode(ctx context.Context, userID uuid.UUID, candidate string) error {
	expiry, attrs, err := c.pending(ctx, userID)
	if errors.Is(err, ErrNoPendingCode) {
		return errors.Join(ErrCodeMismatch, err)
	}
	if err != nil {
		return err
	}

	if attrs.Code == "" || subtle.ConstantTimeCompare([]byte(attrs.Code), []byte(candidate)) != 1 {
		return ErrCodeMismatch
	}

	if err := c.store.DeleteField(ctx, userID, expiry, FieldCode); err != nil {
		return err
	}
	if err := c.accounts.ClearPendingVerification(ctx, userID); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}

	c.log.InfoContext(ctx, "verification code accepted",
		logger.UserID(userID), logger.SessionExpiry(expiry))

	return nil
}

// PendingCode returns the code the session id must relay to the new device.
// It returns ErrNoPendingCode unless id is the challenged session.
func (c *Challenger) PendingCode(ctx context.Context, id Identity) (string, error) {
	expiry, ok, err := c.accounts.PendingVerification(ctx, id.UserID)
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	if !ok || expiry != id.Expiry {
		return "", ErrNoPendingCode
	}

	code, err := c.store.Read(ctx, id.UserID, id.Expiry, FieldCode)
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			return "", ErrNoPendingCode
		}
		return "", err
	}
	return code, nil
}

// Transfer moves the account pointer from one session to another when the
// first is rotated. The code itself travels with the record.
func (c *Challenger) Transfer(ctx context.Context, userID uuid.UUID, from, to int64) error {
	expiry, ok, err := c.accounts.PendingVerification(ctx, userID)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !ok || expiry != from {
		return nil
	}
	if err := c.accounts.SetPendingVerification(ctx, userID, to); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	return nil
}

// generateCode returns n uniformly distributed decimal digits from crypto/rand.
func generateCode(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 that fits in a byte
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
