package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-service/internal/analytics"
	analyticsstore "github.com/serroba/ratelimit-service/internal/analytics/store"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"github.com/serroba/ratelimit-service/internal/store"
	"go.uber.org/zap"
)

// Store backends accepted by --store-backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options are read from flags or SERVICE_* environment variables.
type Options struct {
	Port              int    `default:"8888"           help:"Port to listen on"                                 short:"p"`
	RedisAddr         string `default:"localhost:6379" help:"Redis server address"                              short:"r"`
	RedisPassword     string `default:""               help:"Redis password"`
	RedisDB           int    `default:"0"              help:"Redis database number"`
	StoreBackend      string `default:"redis"          help:"Counter store backend (redis or memory)"`
	KeyPrefix         string `default:"rate-limit:"    help:"Prefix for counter keys in Redis"`
	RequestsPerWindow int    `default:"100"            help:"Requests allowed per identity per window"          short:"l"`
	WindowSeconds     int    `default:"3600"           help:"Window length in seconds"                          short:"w"`
	IdentityHeader    string `default:"X-User-ID"      help:"Header carrying the caller identity"`
	AnonymousClients  bool   `default:"false"          help:"Identify callers without the header by IP and User-Agent"`
	FailurePolicy     string `default:"closed"         help:"Behavior when the counter store is down (open or closed)"`
	StoreTimeoutMs    int    `default:"500"            help:"Timeout for one counter store evaluation in milliseconds"`
	LogFormat         string `default:"console"        help:"Log format (console or json)"`
	PostgresDSN       string `default:""               help:"PostgreSQL DSN for analytics events"`
	EventsEnabled     bool   `default:"false"          help:"Publish rate limit events to Redis streams"`
}

// RateLimitConfig converts the options into a limiter configuration.
func (o *Options) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		Limit:  int64(o.RequestsPerWindow),
		Window: time.Duration(o.WindowSeconds) * time.Second,
	}
}

// StoreTimeout returns the per evaluation store timeout.
func (o *Options) StoreTimeout() time.Duration {
	return time.Duration(o.StoreTimeoutMs) * time.Millisecond
}

// RedisClient wraps redis.Client so the injector closes it on shutdown.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool wraps pgxpool.Pool so the injector closes it on shutdown.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// CounterStore is a ratelimit.Store that can also report its health.
type CounterStore interface {
	ratelimit.Store
	Ping(ctx context.Context) error
}

func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})}, nil
	})
}

// StorePackage provides the counter store selected by --store-backend.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (CounterStore, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.StoreBackend {
		case BackendRedis:
			client := do.MustInvoke[*RedisClient](i)

			return store.NewRedisCounterStore(client.Client, opts.KeyPrefix), nil
		case BackendMemory:
			return store.NewRateLimitMemoryStore(), nil
		default:
			return nil, fmt.Errorf("%w: unknown store backend %q", ratelimit.ErrInvalidConfiguration, opts.StoreBackend)
		}
	})
}

// PostgresPackage provides the analytics store: Postgres when a DSN is set, logging otherwise.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})

	do.Provide(i, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PostgresDSN == "" {
			logger.Info("no postgres DSN configured, analytics events are only logged")

			return analyticsstore.NewNoop(logger), nil
		}

		pool := do.MustInvoke[*PostgresPool](i)
		events := store.NewPostgresEventStore(pool.Pool)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := events.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare analytics schema: %w", err)
		}

		return events, nil
	})
}
