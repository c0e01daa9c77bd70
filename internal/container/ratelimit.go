package container

import (
	"github.com/jaevor/go-nanoid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-service/internal/analytics"
	"github.com/serroba/ratelimit-service/internal/messaging"
	"github.com/serroba/ratelimit-service/internal/metrics"
	"github.com/serroba/ratelimit-service/internal/middleware"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"go.uber.org/zap"
)

const requestIDLength = 21

// RequestIDGenerator creates request IDs for requests that arrive without one.
type RequestIDGenerator func() string

// RateLimitPackage provides the limiter, identity resolution and middleware options.
// The limiter provider fails when the configured quota or window is invalid.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.FixedWindowLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		counters, err := do.Invoke[CounterStore](i)
		if err != nil {
			return nil, err
		}

		return ratelimit.NewFixedWindowLimiter(counters, opts.RateLimitConfig())
	})

	do.Provide(i, func(i *do.Injector) (middleware.IdentityResolver, error) {
		opts := do.MustInvoke[*Options](i)

		header := middleware.NewHeaderIdentityResolver(opts.IdentityHeader)
		if !opts.AnonymousClients {
			return header, nil
		}

		return middleware.ChainResolver{header, middleware.NewClientIdentityResolver()}, nil
	})

	do.Provide(i, func(i *do.Injector) (middleware.RateLimitOptions, error) {
		opts := do.MustInvoke[*Options](i)

		policy, err := middleware.ParseFailurePolicy(opts.FailurePolicy)
		if err != nil {
			return middleware.RateLimitOptions{}, err
		}

		rlOpts := middleware.RateLimitOptions{
			FailurePolicy: policy,
			StoreTimeout:  opts.StoreTimeout(),
			Metrics:       do.MustInvoke[*metrics.Metrics](i),
		}

		if opts.EventsEnabled {
			publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()
			rlOpts.PublishWindowStarted = messaging.NewPublishFunc[analytics.WindowStartedEvent](
				publisher, analytics.TopicWindowStarted)
			rlOpts.PublishLimitExceeded = messaging.NewPublishFunc[analytics.LimitExceededEvent](
				publisher, analytics.TopicLimitExceeded)
		}

		return rlOpts, nil
	})

	do.Provide(i, func(i *do.Injector) (RequestIDGenerator, error) {
		gen, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, err
		}

		return RequestIDGenerator(gen), nil
	})
}

// MetricsPackage provides a dedicated prometheus registry and the limiter collectors.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		return reg, nil
	})

	do.Provide(i, func(i *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
	})
}

func logStartup(logger *zap.Logger, opts *Options) {
	logger.Info("rate limiter configured",
		zap.String("store", opts.StoreBackend),
		zap.Int("requests_per_window", opts.RequestsPerWindow),
		zap.Int("window_seconds", opts.WindowSeconds),
		zap.String("identity_header", opts.IdentityHeader),
		zap.String("failure_policy", opts.FailurePolicy),
		zap.Bool("events_enabled", opts.EventsEnabled),
	)
}
