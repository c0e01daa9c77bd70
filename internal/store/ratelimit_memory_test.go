package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"github.com/serroba/ratelimit-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestRateLimitMemoryStore(t *testing.T) {
	t.Run("increments and reports no expiry for a fresh counter", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		count, ttl, err := s.IncrementAndPeekTTL(context.Background(), "key1")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, ratelimit.NoExpiry, ttl)

		count, ttl, err = s.IncrementAndPeekTTL(context.Background(), "key1")

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, ratelimit.NoExpiry, ttl)
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")
		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")

		count, _, err := s.IncrementAndPeekTTL(context.Background(), "key2")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "key2 should have its own counter")
	})

	t.Run("reports remaining ttl after expiry is set", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStoreWithClock(clock.Now)

		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")
		require.NoError(t, s.SetExpiry(context.Background(), "key1", time.Minute))

		clock.Advance(10 * time.Second)

		count, ttl, err := s.IncrementAndPeekTTL(context.Background(), "key1")

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, 50*time.Second, ttl)
	})

	t.Run("set expiry does not move an existing expiry", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStoreWithClock(clock.Now)

		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")
		require.NoError(t, s.SetExpiry(context.Background(), "key1", time.Minute))

		clock.Advance(20 * time.Second)
		require.NoError(t, s.SetExpiry(context.Background(), "key1", time.Minute))

		_, ttl, err := s.IncrementAndPeekTTL(context.Background(), "key1")

		require.NoError(t, err)
		assert.Equal(t, 40*time.Second, ttl, "second SetExpiry must be a no-op")
	})

	t.Run("set expiry on a missing key is a no-op", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		require.NoError(t, s.SetExpiry(context.Background(), "missing", time.Minute))

		_, ttl, err := s.IncrementAndPeekTTL(context.Background(), "missing")

		require.NoError(t, err)
		assert.Equal(t, ratelimit.NoExpiry, ttl)
	})

	t.Run("drops the counter once the expiry passes", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStoreWithClock(clock.Now)

		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")
		_, _, _ = s.IncrementAndPeekTTL(context.Background(), "key1")
		require.NoError(t, s.SetExpiry(context.Background(), "key1", time.Minute))

		clock.Advance(time.Minute)

		count, ttl, err := s.IncrementAndPeekTTL(context.Background(), "key1")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "expired counter should restart")
		assert.Equal(t, ratelimit.NoExpiry, ttl)
	})

	t.Run("concurrent increments never share a count", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		const workers = 50

		counts := make(chan int64, workers)

		var wg sync.WaitGroup

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				count, _, err := s.IncrementAndPeekTTL(context.Background(), "shared")
				assert.NoError(t, err)

				counts <- count
			}()
		}

		wg.Wait()
		close(counts)

		seen := make(map[int64]bool, workers)
		for c := range counts {
			assert.False(t, seen[c], "count %d observed twice", c)
			seen[c] = true
		}

		assert.Len(t, seen, workers)
	})

	t.Run("ping succeeds", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		assert.NoError(t, s.Ping(context.Background()))
	})
}
