package analytics

import "time"

const (
	// TopicWindowStarted carries WindowStartedEvent.
	TopicWindowStarted = "ratelimit.window_started"
	// TopicLimitExceeded carries LimitExceededEvent.
	TopicLimitExceeded = "ratelimit.limit_exceeded"
)

// WindowStartedEvent is emitted when a request opens a new window for an identity.
type WindowStartedEvent struct {
	EventID       string    `json:"eventId"`
	Identity      string    `json:"identity"`
	Limit         int64     `json:"limit"`
	WindowSeconds int64     `json:"windowSeconds"`
	StartedAt     time.Time `json:"startedAt"`
	ResetAt       time.Time `json:"resetAt"`
	RequestID     string    `json:"requestId,omitempty"`
	ClientIP      string    `json:"clientIp"`
	UserAgent     string    `json:"userAgent"`
}

// LimitExceededEvent is emitted when a request is rejected by the limiter.
type LimitExceededEvent struct {
	EventID       string    `json:"eventId"`
	Identity      string    `json:"identity"`
	Count         int64     `json:"count"`
	Limit         int64     `json:"limit"`
	WindowSeconds int64     `json:"windowSeconds"`
	RejectedAt    time.Time `json:"rejectedAt"`
	ResetAt       time.Time `json:"resetAt"`
	Path          string    `json:"path,omitempty"`
	RequestID     string    `json:"requestId,omitempty"`
	ClientIP      string    `json:"clientIp"`
	UserAgent     string    `json:"userAgent"`
}
