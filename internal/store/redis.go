package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
)

// DefaultKeyPrefix namespaces counter keys in Redis.
const DefaultKeyPrefix = "rate-limit:"

// RedisCounterStore is a Redis implementation of ratelimit.Store.
type RedisCounterStore struct {
	client *redis.Client
	prefix string // "rate-limit:" for identity->count (string keys)
}

// NewRedisCounterStore creates a new Redis-backed counter store.
// An empty prefix falls back to DefaultKeyPrefix.
func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &RedisCounterStore{
		client: client,
		prefix: prefix,
	}
}

// IncrementAndPeekTTL runs INCR and TTL on the identity key inside one MULTI/EXEC.
func (r *RedisCounterStore) IncrementAndPeekTTL(ctx context.Context, identity string) (int64, time.Duration, error) {
	key := r.key(identity)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("%w: increment %s: %w", ratelimit.ErrStoreUnavailable, key, err)
	}

	// -1 means no expiry; -2 (missing key) cannot follow an INCR in the same transaction.
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = ratelimit.NoExpiry
	}

	return incr.Val(), remaining, nil
}

// SetExpiry sets the key expiry with NX so an existing expiry is never moved.
func (r *RedisCounterStore) SetExpiry(ctx context.Context, identity string, window time.Duration) error {
	key := r.key(identity)

	if err := r.client.ExpireNX(ctx, key, window).Err(); err != nil {
		return fmt.Errorf("%w: expire %s: %w", ratelimit.ErrStoreUnavailable, key, err)
	}

	return nil
}

// Ping checks Redis connectivity.
func (r *RedisCounterStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCounterStore) key(identity string) string {
	return r.prefix + identity
}

// Compile-time check.
var _ ratelimit.Store = (*RedisCounterStore)(nil)
