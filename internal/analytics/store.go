package analytics

import "context"

// Store defines the interface for persisting rate limit events.
type Store interface {
	SaveWindowStarted(ctx context.Context, event *WindowStartedEvent) error
	SaveLimitExceeded(ctx context.Context, event *LimitExceededEvent) error
}
