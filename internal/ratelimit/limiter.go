package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a request from the given key should be allowed.
	Allow(ctx context.Context, key string) (allowed bool, err error)
}

// Evaluator produces a full admission decision for an identity.
type Evaluator interface {
	Evaluate(ctx context.Context, identity string) (Decision, error)
}

// Option configures a FixedWindowLimiter.
type Option func(*FixedWindowLimiter)

// WithClock overrides the clock used to compute reset instants.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// FixedWindowLimiter implements rate limiting using a fixed window counter.
// Windows are driven entirely by the store's key expiry.
type FixedWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter creates a new fixed window rate limiter.
func NewFixedWindowLimiter(store Store, cfg Config, opts ...Option) (*FixedWindowLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if store == nil {
		return nil, errors.New("rate limit store is required")
	}

	l := &FixedWindowLimiter{
		store:  store,
		limit:  cfg.Limit,
		window: cfg.Window,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Evaluate counts the request against identity's current window and decides admission.
//
// The increment is never rolled back, so a request cancelled after it still
// consumes quota.
func (l *FixedWindowLimiter) Evaluate(ctx context.Context, identity string) (Decision, error) {
	if identity == "" {
		return Decision{}, ErrIdentityMissing
	}

	count, ttl, err := l.store.IncrementAndPeekTTL(ctx, identity)
	if err != nil {
		return Decision{}, err
	}

	windowStarted := ttl == NoExpiry
	// Anchor the window only after the increment revealed it has no expiry.
	if windowStarted {
		if err := l.store.SetExpiry(ctx, identity, l.window); err != nil {
			return Decision{}, err
		}
	}

	now := l.now()

	resetIn := ttl
	if windowStarted {
		resetIn = l.window
	}

	d := Decision{
		Identity:      identity,
		Count:         count,
		TTL:           ttl,
		Limit:         l.limit,
		Window:        l.window,
		Limited:       count > l.limit,
		Remaining:     remaining(l.limit, count),
		WindowStarted: windowStarted,
		ResetAt:       now.Add(resetIn),
	}

	if d.Limited {
		d.Message = exceededMessage(l.limit, l.window, d.ResetAt)
	}

	return d, nil
}

// Allow reports whether the request from key is admitted.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	d, err := l.Evaluate(ctx, key)
	if err != nil {
		return false, err
	}

	return d.Allowed(), nil
}

// Config returns the limiter's quota configuration.
func (l *FixedWindowLimiter) Config() Config {
	return Config{Limit: l.limit, Window: l.window}
}

var (
	_ Limiter   = (*FixedWindowLimiter)(nil)
	_ Evaluator = (*FixedWindowLimiter)(nil)
)
