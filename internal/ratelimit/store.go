package ratelimit

import (
	"context"
	"time"
)

// NoExpiry is the TTL reported for a counter that has no expiry set yet.
// A fresh counter always reports it, which marks the first request of a window.
const NoExpiry time.Duration = -1

// Store defines the counter store used by the fixed window limiter.
//
// Implementations must issue the increment and the TTL read as a single
// atomic unit against the backing store.
type Store interface {
	// IncrementAndPeekTTL increments the counter for identity (creating it at 1)
	// and returns the new count together with the remaining time to live.
	// The TTL is NoExpiry when the counter has no expiry.
	IncrementAndPeekTTL(ctx context.Context, identity string) (count int64, ttl time.Duration, err error)

	// SetExpiry expires the counter for identity after window. It only takes
	// effect when the counter has no expiry yet.
	SetExpiry(ctx context.Context, identity string, window time.Duration) error
}
