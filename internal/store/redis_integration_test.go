//go:build integration

package store_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"github.com/serroba/ratelimit-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisCounterStoreIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	s := store.NewRedisCounterStore(client, "rate-limit-test:")

	t.Run("first increment has no expiry", func(t *testing.T) {
		identity := "first-increment"
		defer client.Del(ctx, "rate-limit-test:"+identity)

		count, ttl, err := s.IncrementAndPeekTTL(ctx, identity)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, ratelimit.NoExpiry, ttl)
	})

	t.Run("expiry is set once and not extended", func(t *testing.T) {
		identity := "expiry-once"
		defer client.Del(ctx, "rate-limit-test:"+identity)

		_, _, _ = s.IncrementAndPeekTTL(ctx, identity)
		require.NoError(t, s.SetExpiry(ctx, identity, 60*time.Second))
		require.NoError(t, s.SetExpiry(ctx, identity, 600*time.Second))

		_, ttl, err := s.IncrementAndPeekTTL(ctx, identity)

		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 60*time.Second)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		identity := "window-reset"
		defer client.Del(ctx, "rate-limit-test:"+identity)

		_, _, _ = s.IncrementAndPeekTTL(ctx, identity)
		_, _, _ = s.IncrementAndPeekTTL(ctx, identity)
		require.NoError(t, s.SetExpiry(ctx, identity, time.Second))

		time.Sleep(1100 * time.Millisecond)

		count, ttl, err := s.IncrementAndPeekTTL(ctx, identity)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, ratelimit.NoExpiry, ttl)
	})

	t.Run("concurrent first requests get distinct counts", func(t *testing.T) {
		identity := "concurrent-first"
		defer client.Del(ctx, "rate-limit-test:"+identity)

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			counts []int64
		)

		for range 2 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				count, _, err := s.IncrementAndPeekTTL(ctx, identity)
				assert.NoError(t, err)

				mu.Lock()
				counts = append(counts, count)
				mu.Unlock()
			}()
		}

		wg.Wait()

		assert.ElementsMatch(t, []int64{1, 2}, counts)
	})
}
