// Package projection keeps read models of committed scoring state, keyed by
// tournament, so leaderboard reads skip the recompute tables.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("projection: key not found")

// Store persists serialized projections. RedisStore backs it in production.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryStore serves single-process runs of the CLI and tests.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[string]cached
	now  func() time.Time
}

type cached struct {
	value     []byte
	expiresAt time.Time
}

func (c cached) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

// NewInMemoryStore creates an empty store on the wall clock.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]cached), now: time.Now}
}

// Get returns a copy of the stored bytes.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if c.expired(s.now()) {
		delete(s.data, key)
		return nil, fmt.Errorf("%w: %s (expired)", ErrNotFound, key)
	}
	return append([]byte(nil), c.value...), nil
}

// Set stores value; a ttl of zero keeps it until deleted.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cached{value: append([]byte(nil), value...)}
	if ttl > 0 {
		c.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal projection %s: %w", key, err)
	}
	return store.Set(ctx, key, data, ttl)
}

// GetJSON loads key and decodes it into dest.
func GetJSON(ctx context.Context, store Store, key string, dest any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal projection %s: %w", key, err)
	}
	return nil
}
