package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a hash field does not exist.
	ErrNotFound = errors.New("kvstore: not found")
	// ErrWrongType is returned when a key holds a value of another kind.
	ErrWrongType = errors.New("kvstore: operation against a key holding the wrong kind of value")
)

// ExpireMode guards ExpireAt.
type ExpireMode int

const (
	// ExpireAlways sets the expiration unconditionally.
	ExpireAlways ExpireMode = iota
	// ExpireNX sets the expiration only when the key has none.
	ExpireNX
	// ExpireGT sets the expiration only when it is later than the current one.
	ExpireGT
)

// String returns the Redis flag for the mode.
func (m ExpireMode) String() string {
	switch m {
	case ExpireNX:
		return "NX"
	case ExpireGT:
		return "GT"
	default:
		return ""
	}
}

// Store is the key-value capability surface used by the session subsystem.
// Implementations must be safe for concurrent use.
type Store interface {
	// SAdd adds members to the set and returns how many were not present before.
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	// SRem removes members from the set and returns how many were removed.
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	// HGet returns ErrNotFound if the key or the field does not exist.
	HGet(ctx context.Context, key, field string) (string, error)
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
	// HDel returns how many fields were removed.
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	Exists(ctx context.Context, key string) (bool, error)
	// Del returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// ExpireAt sets an absolute expiration on key. It reports whether the
	// expiration was applied, which is false for a missing key or when the
	// mode guard rejected it.
	ExpireAt(ctx context.Context, key string, at time.Time, mode ExpireMode) (bool, error)
}
