package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ratelimit-service/internal/analytics"
)

const (
	eventKindWindowStarted = "window_started"
	eventKindLimitExceeded = "limit_exceeded"
)

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS rate_limit_events (
		event_id       TEXT PRIMARY KEY,
		kind           TEXT        NOT NULL,
		identity       TEXT        NOT NULL,
		request_count  BIGINT      NOT NULL,
		request_limit  BIGINT      NOT NULL,
		window_seconds BIGINT      NOT NULL,
		occurred_at    TIMESTAMPTZ NOT NULL,
		reset_at       TIMESTAMPTZ NOT NULL,
		path           TEXT,
		request_id     TEXT,
		client_ip      TEXT,
		user_agent     TEXT
	)
`

// PostgresEventStore is a PostgreSQL implementation of analytics.Store.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEventStore creates a new PostgreSQL-backed event store.
func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

// EnsureSchema creates the events table if it does not exist.
func (p *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createEventsTable)

	return err
}

func (p *PostgresEventStore) SaveWindowStarted(ctx context.Context, event *analytics.WindowStartedEvent) error {
	return p.insert(ctx, eventRow{
		id:            event.EventID,
		kind:          eventKindWindowStarted,
		identity:      event.Identity,
		count:         1,
		limit:         event.Limit,
		windowSeconds: event.WindowSeconds,
		occurredAt:    event.StartedAt,
		resetAt:       event.ResetAt,
		requestID:     event.RequestID,
		clientIP:      event.ClientIP,
		userAgent:     event.UserAgent,
	})
}

func (p *PostgresEventStore) SaveLimitExceeded(ctx context.Context, event *analytics.LimitExceededEvent) error {
	return p.insert(ctx, eventRow{
		id:            event.EventID,
		kind:          eventKindLimitExceeded,
		identity:      event.Identity,
		count:         event.Count,
		limit:         event.Limit,
		windowSeconds: event.WindowSeconds,
		occurredAt:    event.RejectedAt,
		resetAt:       event.ResetAt,
		path:          event.Path,
		requestID:     event.RequestID,
		clientIP:      event.ClientIP,
		userAgent:     event.UserAgent,
	})
}

// CountLimitExceeded returns how many rejections were recorded for identity since the given time.
func (p *PostgresEventStore) CountLimitExceeded(ctx context.Context, identity string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM rate_limit_events
		WHERE kind = $1 AND identity = $2 AND occurred_at >= $3
	`

	var count int64

	err := p.pool.QueryRow(ctx, query, eventKindLimitExceeded, identity, since).Scan(&count)

	return count, err
}

// Shutdown is a no-op for PostgresEventStore (pool managed externally).
func (p *PostgresEventStore) Shutdown() error {
	return nil
}

type eventRow struct {
	id            string
	kind          string
	identity      string
	count         int64
	limit         int64
	windowSeconds int64
	occurredAt    time.Time
	resetAt       time.Time
	path          string
	requestID     string
	clientIP      string
	userAgent     string
}

func (p *PostgresEventStore) insert(ctx context.Context, row eventRow) error {
	query := `
		INSERT INTO rate_limit_events (
			event_id, kind, identity, request_count, request_limit, window_seconds,
			occurred_at, reset_at, path, request_id, client_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		row.id,
		row.kind,
		row.identity,
		row.count,
		row.limit,
		row.windowSeconds,
		row.occurredAt,
		row.resetAt,
		nullableString(row.path),
		nullableString(row.requestID),
		nullableString(row.clientIP),
		nullableString(row.userAgent),
	)

	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ analytics.Store = (*PostgresEventStore)(nil)
