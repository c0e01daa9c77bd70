package store

import (
	"context"

	"github.com/serroba/ratelimit-service/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveWindowStarted(_ context.Context, event *analytics.WindowStartedEvent) error {
	n.logger.Info("window started event received",
		zap.String("identity", event.Identity),
		zap.Int64("limit", event.Limit),
		zap.Int64("windowSeconds", event.WindowSeconds),
		zap.Time("resetAt", event.ResetAt),
	)

	return nil
}

func (n *Noop) SaveLimitExceeded(_ context.Context, event *analytics.LimitExceededEvent) error {
	n.logger.Info("limit exceeded event received",
		zap.String("identity", event.Identity),
		zap.Int64("count", event.Count),
		zap.Int64("limit", event.Limit),
		zap.Time("resetAt", event.ResetAt),
		zap.String("clientIp", event.ClientIP),
	)

	return nil
}
