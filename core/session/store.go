package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authsession/core/kvstore"
	"github.com/dmitrymomot/authsession/core/logger"
)

// Presence is the result of Store.Exists.
type Presence int

const (
	PresenceMissing Presence = iota
	PresenceOK
)

func (p Presence) String() string {
	if p == PresenceOK {
		return "ok"
	}
	return "missing"
}

// Store keeps per-session state as two linked structures per user:
// an index set of session expiries and one hash record per expiry.
//
//	<prefix>sessions:<user>          set of expiries
//	<prefix>session:<user>:<expiry>  hash ua, ip, banned, last_online, code
//
// There are no multi-key transactions. A mismatch between index and record
// is detected by Exists and repaired by deleting the surviving side.
type Store struct {
	kv     kvstore.Store
	prefix string
	log    *slog.Logger
}

// NewStore creates a Store over kv.
func NewStore(kv kvstore.Store, opts ...Option) *Store {
	o := applyOptions(opts)
	return &Store{
		kv:     kv,
		prefix: o.keyPrefix,
		log:    o.logger.With(logger.Component("session_store")),
	}
}

func (s *Store) indexKey(userID uuid.UUID) string {
	return s.prefix + "sessions:" + userID.String()
}

func (s *Store) recordKey(userID uuid.UUID, expiry int64) string {
	return s.prefix + "session:" + userID.String() + ":" + member(expiry)
}

func member(expiry int64) string {
	return strconv.FormatInt(expiry, 10)
}

// Create writes the record with a TTL ending at expiry and adds expiry to the
// user's index. The index TTL is only ever extended. Calling Create twice
// with the same arguments leaves one record and one index entry.
// A partial failure is not rolled back; Exists repairs it later.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, expiry int64, attrs Attributes) error {
	rk := s.recordKey(userID, expiry)
	at := time.Unix(expiry, 0)

	if err := s.kv.HSet(ctx, rk, attrs.fields()); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if _, err := s.kv.ExpireAt(ctx, rk, at, kvstore.ExpireAlways); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}

	ik := s.indexKey(userID)
	if _, err := s.kv.SAdd(ctx, ik, member(expiry)); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if err := s.extendIndex(ctx, ik, at); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}

	return nil
}

// extendIndex sets the index TTL if it has none, otherwise only moves it later.
func (s *Store) extendIndex(ctx context.Context, key string, at time.Time) error {
	ok, err := s.kv.ExpireAt(ctx, key, at, kvstore.ExpireNX)
	if err != nil || ok {
		return err
	}
	_, err = s.kv.ExpireAt(ctx, key, at, kvstore.ExpireGT)
	return err
}

// Exists reports PresenceOK when both the index entry and the record exist.
// If only one of them exists it is deleted and PresenceMissing is returned.
func (s *Store) Exists(ctx context.Context, userID uuid.UUID, expiry int64) (Presence, error) {
	ik, rk := s.indexKey(userID), s.recordKey(userID, expiry)

	indexed, err := s.kv.SIsMember(ctx, ik, member(expiry))
	if err != nil {
		return PresenceMissing, errors.Join(ErrStoreUnavailable, err)
	}
	recorded, err := s.kv.Exists(ctx, rk)
	if err != nil {
		return PresenceMissing, errors.Join(ErrStoreUnavailable, err)
	}

	switch {
	case indexed && recorded:
		return PresenceOK, nil
	case !indexed && !recorded:
		return PresenceMissing, nil
	}

	s.log.WarnContext(ctx, "damaged session detected, removing surviving side",
		logger.UserID(userID),
		logger.SessionExpiry(expiry),
		slog.Bool("indexed", indexed),
		slog.Bool("recorded", recorded),
	)

	if indexed {
		_, err = s.kv.SRem(ctx, ik, member(expiry))
	} else {
		_, err = s.kv.Del(ctx, rk)
	}
	if err != nil {
		return PresenceMissing, errors.Join(ErrStoreWriteFailed, err)
	}

	return PresenceMissing, nil
}

// Get returns all attributes of a session record.
func (s *Store) Get(ctx context.Context, userID uuid.UUID, expiry int64) (Attributes, error) {
	m, err := s.kv.HGetAll(ctx, s.recordKey(userID, expiry))
	if err != nil {
		return Attributes{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(m) == 0 {
		return Attributes{}, ErrSessionMissing
	}
	return parseAttributes(m), nil
}

// Read returns a single record field. A missing record or field yields ErrSessionMissing
// joined with kvstore.ErrNotFound.
func (s *Store) Read(ctx context.Context, userID uuid.UUID, expiry int64, field string) (string, error) {
	v, err := s.kv.HGet(ctx, s.recordKey(userID, expiry), field)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return "", errors.Join(ErrSessionMissing, err)
		}
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	return v, nil
}

// Update sets a single record field.
func (s *Store) Update(ctx context.Context, userID uuid.UUID, expiry int64, field, value string) error {
	return s.UpdateFields(ctx, userID, expiry, map[string]string{field: value})
}

// UpdateFields sets several record fields at once. The record TTL is
// re-applied if the key lost it, which happens when a concurrent Remove
// deleted the record between the caller's checks and this write.
func (s *Store) UpdateFields(ctx context.Context, userID uuid.UUID, expiry int64, fields map[string]string) error {
	rk := s.recordKey(userID, expiry)
	if err := s.kv.HSet(ctx, rk, fields); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if _, err := s.kv.ExpireAt(ctx, rk, time.Unix(expiry, 0), kvstore.ExpireNX); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	return nil
}

// DeleteField removes a single record field.
func (s *Store) DeleteField(ctx context.Context, userID uuid.UUID, expiry int64, field string) error {
	if _, err := s.kv.HDel(ctx, s.recordKey(userID, expiry), field); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	return nil
}

// Remove deletes the record and the index entry. It returns ErrSessionMissing
// unless both deletions removed something.
func (s *Store) Remove(ctx context.Context, userID uuid.UUID, expiry int64) error {
	deleted, err := s.kv.Del(ctx, s.recordKey(userID, expiry))
	if err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	removed, err := s.kv.SRem(ctx, s.indexKey(userID), member(expiry))
	if err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if deleted == 0 || removed == 0 {
		return ErrSessionMissing
	}
	return nil
}

// List returns the expiries in the user's index in ascending order.
// Entries that are not valid integers are dropped from the index.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	ik := s.indexKey(userID)
	members, err := s.kv.SMembers(ctx, ik)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	expiries := make([]int64, 0, len(members))
	for _, m := range members {
		e, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.WarnContext(ctx, "dropping malformed index entry",
				logger.UserID(userID), logger.Key("member", m))
			if _, err := s.kv.SRem(ctx, ik, m); err != nil {
				return nil, errors.Join(ErrStoreWriteFailed, err)
			}
			continue
		}
		expiries = append(expiries, e)
	}

	sort.Slice(expiries, func(i, j int) bool { return expiries[i] < expiries[j] })
	return expiries, nil
}
