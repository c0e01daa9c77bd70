package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_RetryAfter(t *testing.T) {
	tests := []struct {
		name    string
		resetIn time.Duration
		want    int64
	}{
		{name: "whole seconds", resetIn: 30 * time.Second, want: 30},
		{name: "rounds partial seconds up", resetIn: 1500 * time.Millisecond, want: 2},
		{name: "never below one", resetIn: 0, want: 1},
		{name: "past reset", resetIn: -time.Second, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ratelimit.Decision{ResetAt: testNow.Add(tt.resetIn)}

			assert.Equal(t, tt.want, d.RetryAfter(testNow))
		})
	}
}

func TestDecision_MessageWindowLabel(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{window: 24 * time.Hour, want: "per day"},
		{window: time.Hour, want: "per hour"},
		{window: time.Minute, want: "per minute"},
		{window: time.Second, want: "per second"},
		{window: 90 * time.Second, want: "per 1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			limiter, _, _ := newLimiter(t, 1, tt.window)

			_, _ = limiter.Evaluate(context.Background(), "u1")

			d, err := limiter.Evaluate(context.Background(), "u1")

			require.NoError(t, err)
			assert.Contains(t, d.Message, "maximum number of 1 requests "+tt.want)
			assert.Contains(t, d.Message, "Rate limit exceeded")
		})
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	limiter, _, _ := newLimiter(t, 2, time.Minute)

	for range 5 {
		d, err := limiter.Evaluate(context.Background(), "u1")

		require.NoError(t, err)
		assert.GreaterOrEqual(t, d.Remaining, int64(0))
		assert.Equal(t, max(0, d.Limit-d.Count), d.Remaining)
		assert.Equal(t, d.Count <= d.Limit, d.Allowed())
	}
}
