package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// ResetTimeLayout is the layout used for the reset instant in rejection messages.
const ResetTimeLayout = "January 2, 2006, 03:04:05 PM MST"

// Decision is the outcome of evaluating a single request.
type Decision struct {
	Identity string
	// Count is the number of requests in the current window, including this one.
	Count int64
	// TTL is the time to live reported by the store for this evaluation.
	// It is NoExpiry when this request opened the window.
	TTL    time.Duration
	Limit  int64
	Window time.Duration
	// Limited is true when Count exceeds Limit.
	Limited   bool
	Remaining int64
	// WindowStarted is true when this request observed a counter without expiry
	// and anchored the window.
	WindowStarted bool
	ResetAt       time.Time
	// Message is only set for limited decisions.
	Message string
}

// Allowed reports whether the request is admitted.
func (d Decision) Allowed() bool {
	return !d.Limited
}

// RetryAfter returns the whole seconds left until the window resets, at least one.
func (d Decision) RetryAfter(now time.Time) int64 {
	secs := int64(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}

	return secs
}

func remaining(limit, count int64) int64 {
	return max(0, limit-count)
}

func exceededMessage(limit int64, window time.Duration, resetAt time.Time) string {
	return fmt.Sprintf(
		"Rate limit exceeded. You have reached the maximum number of %d requests per %s. Please try again after %s.",
		limit, windowLabel(window), resetAt.Format(ResetTimeLayout),
	)
}

func windowLabel(window time.Duration) string {
	switch window {
	case 24 * time.Hour:
		return "day"
	case time.Hour:
		return "hour"
	case time.Minute:
		return "minute"
	case time.Second:
		return "second"
	default:
		return window.String()
	}
}
