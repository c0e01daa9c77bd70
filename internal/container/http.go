package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-service/internal/handlers"
	"github.com/serroba/ratelimit-service/internal/health"
	"github.com/serroba/ratelimit-service/internal/middleware"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the chi router and the huma API with middleware and routes registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		reg := do.MustInvoke[*prometheus.Registry](i)

		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		limiter, err := do.Invoke[*ratelimit.FixedWindowLimiter](i)
		if err != nil {
			return nil, err
		}

		rlOpts, err := do.Invoke[middleware.RateLimitOptions](i)
		if err != nil {
			return nil, err
		}

		resolver := do.MustInvoke[middleware.IdentityResolver](i)
		newID := do.MustInvoke[RequestIDGenerator](i)
		counters := do.MustInvoke[CounterStore](i)

		api := humachi.New(router, huma.DefaultConfig("Rate Limit Service", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api, newID),
			middleware.RateLimiter(api, limiter, resolver, rlOpts, logger),
		)

		health.RegisterRoutes(api, health.NewHandler(counters, opts.StoreBackend, logger))
		handlers.RegisterRoutes(api, handlers.NewRateLimitHandler(limiter, logger))

		logStartup(logger, opts)

		return api, nil
	})
}
