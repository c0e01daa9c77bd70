package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitHandler exposes the limiter to other services and serves the protected ping endpoint.
type RateLimitHandler struct {
	limiter ratelimit.Evaluator
	logger  *zap.Logger
}

// NewRateLimitHandler creates a new rate limit handler.
func NewRateLimitHandler(limiter ratelimit.Evaluator, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter, logger: logger}
}

// Evaluate counts one request for the given identity and returns the decision as data.
func (h *RateLimitHandler) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	identity := strings.TrimSpace(req.Body.Identity)

	d, err := h.limiter.Evaluate(ctx, identity)
	if err != nil {
		switch {
		case errors.Is(err, ratelimit.ErrIdentityMissing):
			return nil, huma.Error400BadRequest("identity is required")
		case errors.Is(err, ratelimit.ErrStoreUnavailable):
			h.logger.Error("rate limit store unavailable", zap.String("identity", identity), zap.Error(err))

			return nil, huma.Error503ServiceUnavailable("rate limit store unavailable")
		default:
			h.logger.Error("rate limit evaluation failed", zap.String("identity", identity), zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to evaluate rate limit")
		}
	}

	h.logger.Debug("evaluated rate limit",
		zap.String("identity", identity),
		zap.Int64("count", d.Count),
		zap.Bool("limited", d.Limited),
	)

	return &EvaluateResponse{
		Body: DecisionBody{
			Identity:  d.Identity,
			Count:     d.Count,
			Limit:     d.Limit,
			Remaining: d.Remaining,
			Limited:   d.Limited,
			ResetAt:   d.ResetAt,
			Message:   d.Message,
		},
	}, nil
}

// Ping answers once the rate limit middleware has admitted the request.
func (h *RateLimitHandler) Ping(_ context.Context, _ *struct{}) (*PingResponse, error) {
	resp := &PingResponse{}
	resp.Body.Message = "pong"

	return resp, nil
}
