package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountStore keeps the per-user pointer to the session holding a pending
// verification code in the session_verifications table.
// Calls join the transaction stored in ctx by WithTx, if any.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates an AccountStore over pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

// PendingVerification returns the expiry of the challenged session, ok is false if none is pending.
func (s *AccountStore) PendingVerification(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	const q = `SELECT session_expiry FROM session_verifications WHERE user_id = $1`

	var expiry int64
	if err := s.db(ctx).QueryRow(ctx, q, userID).Scan(&expiry); err != nil {
		if IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, errors.Join(ErrQueryFailed, err)
	}
	return expiry, true, nil
}

// SetPendingVerification points the user's pending code at the session with the given expiry,
// replacing any previous pointer.
func (s *AccountStore) SetPendingVerification(ctx context.Context, userID uuid.UUID, expiry int64) error {
	const q = `INSERT INTO session_verifications (user_id, session_expiry, issued_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET session_expiry = EXCLUDED.session_expiry, issued_at = EXCLUDED.issued_at`

	if _, err := s.db(ctx).Exec(ctx, q, userID, expiry); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

// ClearPendingVerification removes the pointer. Clearing a missing pointer is not an error.
func (s *AccountStore) ClearPendingVerification(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM session_verifications WHERE user_id = $1`

	if _, err := s.db(ctx).Exec(ctx, q, userID); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}
