package ratelimit

import (
	"fmt"
	"time"
)

// Config holds the fixed window quota. It is built once at startup.
type Config struct {
	// Limit is the number of requests admitted per window.
	Limit int64
	// Window is the window size. It must be a whole number of seconds.
	Window time.Duration
}

// Validate reports whether the configuration can drive a limiter.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: requests per window must be positive, got %d", ErrInvalidConfiguration, c.Limit)
	}

	if c.Window < time.Second {
		return fmt.Errorf("%w: window must be at least one second, got %s", ErrInvalidConfiguration, c.Window)
	}

	if c.Window%time.Second != 0 {
		return fmt.Errorf("%w: window must be a whole number of seconds, got %s", ErrInvalidConfiguration, c.Window)
	}

	return nil
}

// WindowSeconds returns the window size in seconds.
func (c Config) WindowSeconds() int64 {
	return int64(c.Window / time.Second)
}
