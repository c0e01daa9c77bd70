package ratelimit

import "errors"

var (
	// ErrStoreUnavailable is returned when the counter store cannot complete an operation.
	// Callers decide whether to fail open or closed.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")

	// ErrInvalidConfiguration is returned when the limiter is built with a non-positive quota or window.
	ErrInvalidConfiguration = errors.New("invalid rate limit configuration")

	// ErrIdentityMissing is returned when a request is evaluated without an identity.
	ErrIdentityMissing = errors.New("identity missing")
)
