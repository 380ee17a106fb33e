package kvstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

type kind int

const (
	kindSet kind = iota + 1
	kindHash
)

type entry struct {
	kind     kind
	set      map[string]struct{}
	hash     map[string]string
	expireAt time.Time
}

// MemoryStore is an in-process Store with Redis semantics.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the time source used for expiration.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]*entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the expiration of key, zero if the key has none, and false if it does not exist.
func (s *MemoryStore) TTL(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return time.Time{}, false
	}
	return e.expireAt, true
}

// Keys returns all live keys in lexical order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if s.lookup(k) != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// lookup returns a live entry, purging it if expired. Caller holds mu.
func (s *MemoryStore) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *MemoryStore) typed(key string, k kind) (*entry, error) {
	e := s.lookup(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != k {
		return nil, ErrWrongType
	}
	return e, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindSet)
	if err != nil {
		return 0, err
	}
	if e == nil {
		if len(members) == 0 {
			return 0, nil
		}
		e = &entry{kind: kindSet, set: make(map[string]struct{})}
		s.data[key] = e
	}

	var added int64
	for _, m := range members {
		if _, ok := e.set[m]; !ok {
			e.set[m] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}

	var removed int64
	for _, m := range members {
		if _, ok := e.set[m]; ok {
			delete(e.set, m)
			removed++
		}
	}
	if len(e.set) == 0 {
		delete(s.data, key)
	}
	return removed, nil
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindSet)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []string{}, nil
	}

	members := make([]string, 0, len(e.set))
	for m := range e.set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[member]
	return ok, nil
}

func (s *MemoryStore) SCard(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.set)), nil
}

func (s *MemoryStore) HGet(ctx context.Context, key, field string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNotFound
	}
	v, ok := e.hash[field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if e == nil {
		return out, nil
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) HSet(ctx context.Context, key string, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash)
	if err != nil {
		return err
	}
	if e == nil {
		e = &entry{kind: kindHash, hash: make(map[string]string, len(values))}
		s.data[key] = e
	}
	for k, v := range values {
		e.hash[k] = v
	}
	return nil
}

func (s *MemoryStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash)
	if err != nil || e == nil {
		return 0, err
	}

	var removed int64
	for _, f := range fields {
		if _, ok := e.hash[f]; ok {
			delete(e.hash, f)
			removed++
		}
	}
	if len(e.hash) == 0 {
		delete(s.data, key)
	}
	return removed, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(key) != nil, nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, k := range keys {
		if s.lookup(k) != nil {
			delete(s.data, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) ExpireAt(ctx context.Context, key string, at time.Time, mode ExpireMode) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return false, nil
	}

	switch mode {
	case ExpireNX:
		if !e.expireAt.IsZero() {
			return false, nil
		}
	case ExpireGT:
		if e.expireAt.IsZero() || !at.After(e.expireAt) {
			return false, nil
		}
	}

	if !s.now().Before(at) {
		delete(s.data, key)
		return true, nil
	}
	e.expireAt = at
	return true, nil
}
