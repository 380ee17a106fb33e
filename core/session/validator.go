package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/pkg/fingerprint"
)

// Validator decides whether a verified identity still has a usable session.
//
//	Unverified -> Missing      no session, or a damaged one (repaired)
//	           -> Blocked      banned earlier, or user agent rejected now
//	           -> Refreshed    valid and close to expiry, token rotated
//	           -> Verified     valid
//	           -> ServerError  any store failure
type Validator struct {
	store     *Store
	codec     *Codec
	refresher *Refresher
	log       *slog.Logger
	now       func() time.Time
}

// NewValidator creates a Validator.
func NewValidator(store *Store, codec *Codec, refresher *Refresher, opts ...Option) *Validator {
	o := applyOptions(opts)
	return &Validator{
		store:     store,
		codec:     codec,
		refresher: refresher,
		log:       o.logger.With(logger.Component("session_validator")),
		now:       o.now,
	}
}

// Validate runs the state machine for one request. The returned error carries
// the internal cause and is nil only for Verified and Refreshed.
func (v *Validator) Validate(ctx context.Context, id Identity, client Client) (Result, error) {
	res := Result{Status: StatusUnverified, Identity: id}

	presence, err := v.store.Exists(ctx, id.UserID, id.Expiry)
	if err != nil {
		res.Status = StatusServerError
		return res, err
	}
	if presence != PresenceOK {
		res.Status = StatusMissing
		return res, ErrSessionMissing
	}

	attrs, err := v.store.Get(ctx, id.UserID, id.Expiry)
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			res.Status = StatusMissing
			return res, err
		}
		res.Status = StatusServerError
		return res, err
	}

	if attrs.Banned {
		res.Status = StatusBlocked
		return res, ErrSessionBlocked
	}

	updates := make(map[string]string, 3)
	if attrs.IP != client.IP {
		updates[FieldIP] = client.IP
	}

	if mismatch := fingerprint.CompareUserAgents(attrs.UserAgent, client.UserAgent); mismatch != nil {
		updates[FieldBanned] = formatBool(true)
		if err := v.store.UpdateFields(ctx, id.UserID, id.Expiry, updates); err != nil {
			res.Status = StatusServerError
			return res, err
		}

		v.log.WarnContext(ctx, "user agent rejected, session blocked",
			logger.UserID(id.UserID),
			logger.SessionExpiry(id.Expiry),
			logger.ClientIP(client.IP),
			logger.UserAgent(client.UserAgent),
			logger.Error(mismatch),
		)

		res.Status = StatusBlocked
		return res, errors.Join(ErrSessionBlocked, mismatch)
	}

	updates[FieldUserAgent] = client.UserAgent
	updates[FieldLastOnline] = strconv.FormatInt(v.now().Unix(), 10)
	if err := v.store.UpdateFields(ctx, id.UserID, id.Expiry, updates); err != nil {
		res.Status = StatusServerError
		return res, err
	}

	if !v.codec.NeedsRefresh(id.Expiry) {
		res.Status = StatusVerified
		return res, nil
	}

	token, err := v.refresher.Refresh(ctx, id.UserID, id.Expiry, client)
	if err != nil {
		res.Status = StatusServerError
		return res, err
	}

	res.Status = StatusRefreshed
	res.Identity = Identity{UserID: id.UserID, Expiry: token.Expiry}
	res.Token = &token
	return res, nil
}
