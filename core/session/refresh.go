package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/core/logger"
)

// Refresher rotates a token that is about to expire together with its session.
type Refresher struct {
	codec *Codec
	store *Store
	log   *slog.Logger
	now   func() time.Time
}

// NewRefresher creates a Refresher.
func NewRefresher(codec *Codec, store *Store, opts ...Option) *Refresher {
	o := applyOptions(opts)
	return &Refresher{
		codec: codec,
		store: store,
		log:   o.logger.With(logger.Component("session_refresher")),
		now:   o.now,
	}
}

// Refresh signs a new token, removes the old session and creates the new one
// with the client's user agent and IP. A pending verification code held by
// the old session moves to the new one.
//
// Nothing is retried. If Remove succeeds and Create fails the user loses the
// session; if Remove fails the old session is left for TTL expiry.
func (r *Refresher) Refresh(ctx context.Context, userID uuid.UUID, oldExpiry int64, client Client) (Token, error) {
	token, err := r.codec.Sign(userID)
	if err != nil {
		return Token{}, err
	}

	old, err := r.store.Get(ctx, userID, oldExpiry)
	if err != nil {
		return Token{}, err
	}

	if err := r.store.Remove(ctx, userID, oldExpiry); err != nil {
		return Token{}, errors.Join(ErrStoreWriteFailed, err)
	}

	attrs := Attributes{
		UserAgent:  client.UserAgent,
		IP:         client.IP,
		LastOnline: r.now().Unix(),
		Code:       old.Code,
	}
	if err := r.store.Create(ctx, userID, token.Expiry, attrs); err != nil {
		return Token{}, err
	}

	r.log.DebugContext(ctx, "session rotated",
		logger.UserID(userID),
		slog.Int64("old_expiry", oldExpiry),
		logger.SessionExpiry(token.Expiry),
	)

	return token, nil
}
