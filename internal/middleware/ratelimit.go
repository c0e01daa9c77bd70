package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/ratelimit-service/internal/analytics"
	"github.com/serroba/ratelimit-service/internal/messaging"
	"github.com/serroba/ratelimit-service/internal/metrics"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"go.uber.org/zap"
)

// Response headers set by the rate limiter.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderCount      = "X-Count"
	HeaderRetryAfter = "Retry-After"
)

// FailurePolicy decides what happens to a request when the counter store is unavailable.
type FailurePolicy string

const (
	// FailClosed rejects the request with 503.
	FailClosed FailurePolicy = "closed"
	// FailOpen lets the request through without rate limit headers.
	FailOpen FailurePolicy = "open"
)

// ParseFailurePolicy parses "open" or "closed".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case FailClosed, FailOpen:
		return FailurePolicy(s), nil
	default:
		return "", errors.New("failure policy must be \"open\" or \"closed\"")
	}
}

// RateLimitOptions configures the RateLimiter middleware. Zero values are usable.
type RateLimitOptions struct {
	FailurePolicy FailurePolicy
	// StoreTimeout bounds each evaluation; zero means no extra deadline.
	StoreTimeout time.Duration
	Metrics      *metrics.Metrics

	PublishWindowStarted messaging.Publish[analytics.WindowStartedEvent]
	PublishLimitExceeded messaging.Publish[analytics.LimitExceededEvent]

	Now func() time.Time
}

// RateLimiter returns a Huma middleware that evaluates every request against the fixed window limiter.
//
// Operations can opt out via ratelimit.MetadataKey metadata with Disabled set.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Evaluator,
	resolver IdentityResolver,
	opts RateLimitOptions,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.FailurePolicy == "" {
		opts.FailurePolicy = FailClosed
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		identity, ok := resolver.Resolve(ctx)
		if !ok {
			observeOutcome(opts.Metrics, metrics.OutcomeIdentityMissing)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "user identity not found")

			return
		}

		d, err := evaluate(ctx.Context(), limiter, identity, opts.StoreTimeout)
		if err != nil {
			handleEvaluateError(api, ctx, identity, err, opts, logger, next)

			return
		}

		logger.Debug("current rate limit request count",
			zap.String("identity", identity), zap.Int64("count", d.Count))

		if opts.Metrics != nil {
			opts.Metrics.ObserveDecision(d)
		}

		writeHeaders(ctx, d)

		meta := RequestMetaFromContext(ctx.Context())
		now := opts.Now()

		if d.WindowStarted {
			publishWindowStarted(ctx.Context(), opts.PublishWindowStarted, d, meta, now, logger)
		}

		if d.Limited {
			logger.Warn("rate limit exceeded",
				zap.String("identity", identity),
				zap.Int64("count", d.Count),
				zap.Int64("limit", d.Limit),
				zap.Time("reset_at", d.ResetAt),
				zap.String("client_ip", meta.ClientIP),
			)
			publishLimitExceeded(ctx.Context(), opts.PublishLimitExceeded, d, meta, now, logger)

			ctx.SetHeader(HeaderRetryAfter, strconv.FormatInt(d.RetryAfter(now), 10))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, d.Message)

			return
		}

		next(ctx)
	}
}

func evaluate(ctx context.Context, limiter ratelimit.Evaluator, identity string, timeout time.Duration) (ratelimit.Decision, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return limiter.Evaluate(ctx, identity)
}

func handleEvaluateError(
	api huma.API,
	ctx huma.Context,
	identity string,
	err error,
	opts RateLimitOptions,
	logger *zap.Logger,
	next func(huma.Context),
) {
	if !errors.Is(err, ratelimit.ErrStoreUnavailable) {
		observeOutcome(opts.Metrics, metrics.OutcomeStoreError)
		logger.Error("rate limit check failed", zap.String("identity", identity), zap.Error(err))
		_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

		return
	}

	observeOutcome(opts.Metrics, metrics.OutcomeStoreError)

	if opts.FailurePolicy == FailOpen {
		if opts.Metrics != nil {
			opts.Metrics.FailOpen.Inc()
		}

		logger.Warn("rate limit store unavailable, admitting request",
			zap.String("identity", identity), zap.Error(err))
		next(ctx)

		return
	}

	logger.Error("rate limit store unavailable, rejecting request",
		zap.String("identity", identity), zap.Error(err))
	_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "rate limit store unavailable")
}

func writeHeaders(ctx huma.Context, d ratelimit.Decision) {
	ctx.SetHeader(HeaderLimit, strconv.FormatInt(d.Limit, 10))
	ctx.SetHeader(HeaderRemaining, strconv.FormatInt(d.Remaining, 10))
	ctx.SetHeader(HeaderCount, strconv.FormatInt(d.Count, 10))
	ctx.SetHeader(HeaderReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func observeOutcome(m *metrics.Metrics, outcome string) {
	if m != nil {
		m.ObserveOutcome(outcome)
	}
}

func publishWindowStarted(
	ctx context.Context,
	publish messaging.Publish[analytics.WindowStartedEvent],
	d ratelimit.Decision,
	meta RequestMeta,
	now time.Time,
	logger *zap.Logger,
) {
	if publish == nil {
		return
	}

	err := publish(ctx, &analytics.WindowStartedEvent{
		EventID:       uuid.NewString(),
		Identity:      d.Identity,
		Limit:         d.Limit,
		WindowSeconds: int64(d.Window / time.Second),
		StartedAt:     now,
		ResetAt:       d.ResetAt,
		RequestID:     meta.RequestID,
		ClientIP:      meta.ClientIP,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		logger.Error("failed to publish window started event",
			zap.String("identity", d.Identity), zap.Error(err))
	}
}

func publishLimitExceeded(
	ctx context.Context,
	publish messaging.Publish[analytics.LimitExceededEvent],
	d ratelimit.Decision,
	meta RequestMeta,
	now time.Time,
	logger *zap.Logger,
) {
	if publish == nil {
		return
	}

	err := publish(ctx, &analytics.LimitExceededEvent{
		EventID:       uuid.NewString(),
		Identity:      d.Identity,
		Count:         d.Count,
		Limit:         d.Limit,
		WindowSeconds: int64(d.Window / time.Second),
		RejectedAt:    now,
		ResetAt:       d.ResetAt,
		Path:          meta.Path,
		RequestID:     meta.RequestID,
		ClientIP:      meta.ClientIP,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		logger.Error("failed to publish limit exceeded event",
			zap.String("identity", d.Identity), zap.Error(err))
	}
}
