package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authsession/core/kvstore"
)

// KVStore implements kvstore.Store on top of a go-redis client.
type KVStore struct {
	client redis.UniversalClient
}

var _ kvstore.Store = (*KVStore)(nil)

// NewKVStore wraps client. Works with single node, sentinel and cluster clients
// as long as the keys of one user hash to the same slot or cluster mode is not used.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.client.SAdd(ctx, key, toArgs(members)...).Result()
	return n, mapError(err)
}

func (s *KVStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.client.SRem(ctx, key, toArgs(members)...).Result()
	return n, mapError(err)
}

func (s *KVStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, mapError(err)
	}
	return members, nil
}

func (s *KVStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	return ok, mapError(err)
}

func (s *KVStore) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.SCard(ctx, key).Result()
	return n, mapError(err)
}

func (s *KVStore) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", mapError(err)
	}
	return v, nil
}

func (s *KVStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (s *KVStore) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	return mapError(s.client.HSet(ctx, key, args...).Err())
}

func (s *KVStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := s.client.HDel(ctx, key, fields...).Result()
	return n, mapError(err)
}

func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, mapError(err)
}

func (s *KVStore) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Del(ctx, keys...).Result()
	return n, mapError(err)
}

// ExpireAt issues EXPIREAT with the NX or GT flag when requested (Redis 7+).
func (s *KVStore) ExpireAt(ctx context.Context, key string, at time.Time, mode kvstore.ExpireMode) (bool, error) {
	if mode == kvstore.ExpireAlways {
		ok, err := s.client.ExpireAt(ctx, key, at).Result()
		return ok, mapError(err)
	}
	ok, err := s.client.Do(ctx, "EXPIREAT", key, at.Unix(), mode.String()).Bool()
	return ok, mapError(err)
}

func toArgs(members []string) []any {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return kvstore.ErrNotFound
	case strings.HasPrefix(err.Error(), "WRONGTYPE"):
		return errors.Join(kvstore.ErrWrongType, err)
	default:
		return errors.Join(ErrCommandFailed, err)
	}
}
