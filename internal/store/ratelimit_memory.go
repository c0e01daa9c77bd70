package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/ratelimit-service/internal/ratelimit"
)

type memoryCounter struct {
	count     int64
	expiresAt time.Time // zero means no expiry
}

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
// It mirrors the Redis semantics for a single process.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]*memoryCounter
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return NewRateLimitMemoryStoreWithClock(time.Now)
}

// NewRateLimitMemoryStoreWithClock creates an in-memory store driven by the given clock.
func NewRateLimitMemoryStoreWithClock(now func() time.Time) *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		now:      now,
		counters: make(map[string]*memoryCounter),
	}
}

func (s *RateLimitMemoryStore) IncrementAndPeekTTL(_ context.Context, identity string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	c := s.live(identity, now)
	if c == nil {
		c = &memoryCounter{}
		s.counters[identity] = c
	}

	c.count++

	if c.expiresAt.IsZero() {
		return c.count, ratelimit.NoExpiry, nil
	}

	// Redis reports TTL in whole seconds.
	return c.count, c.expiresAt.Sub(now).Round(time.Second), nil
}

func (s *RateLimitMemoryStore) SetExpiry(_ context.Context, identity string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	c := s.live(identity, now)
	if c == nil || !c.expiresAt.IsZero() {
		return nil
	}

	c.expiresAt = now.Add(window)

	return nil
}

// Ping always succeeds for the in-memory store.
func (s *RateLimitMemoryStore) Ping(_ context.Context) error {
	return nil
}

// live returns the counter for identity, dropping it when its expiry has passed.
// Callers must hold s.mu.
func (s *RateLimitMemoryStore) live(identity string, now time.Time) *memoryCounter {
	c, ok := s.counters[identity]
	if !ok {
		return nil
	}

	if !c.expiresAt.IsZero() && !now.Before(c.expiresAt) {
		delete(s.counters, identity)

		return nil
	}

	return c
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
