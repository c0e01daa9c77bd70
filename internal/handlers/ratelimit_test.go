package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/ratelimit-service/internal/handlers"
	"github.com/serroba/ratelimit-service/internal/middleware"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"github.com/serroba/ratelimit-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type failingEvaluator struct {
	err error
}

func (f *failingEvaluator) Evaluate(_ context.Context, _ string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, f.err
}

func newLimiter(t *testing.T, limit int64) *ratelimit.FixedWindowLimiter {
	t.Helper()

	now := func() time.Time { return start }

	limiter, err := ratelimit.NewFixedWindowLimiter(
		store.NewRateLimitMemoryStoreWithClock(now),
		ratelimit.Config{Limit: limit, Window: time.Hour},
		ratelimit.WithClock(now),
	)
	require.NoError(t, err)

	return limiter
}

func newRouter(t *testing.T, limiter ratelimit.Evaluator) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RateLimiter(api, limiter,
		middleware.NewHeaderIdentityResolver(""),
		middleware.RateLimitOptions{Now: func() time.Time { return start }},
		zap.NewNop()))

	handlers.RegisterRoutes(api, handlers.NewRateLimitHandler(limiter, zap.NewNop()))

	return router
}

func postEvaluate(router http.Handler, identity string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"identity":%q}`, identity)
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeDecision(t *testing.T, w *httptest.ResponseRecorder) handlers.DecisionBody {
	t.Helper()

	var body handlers.DecisionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

func TestRateLimitHandler_Evaluate(t *testing.T) {
	t.Run("returns admitted decision", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 2))

		w := postEvaluate(router, "alice")

		require.Equal(t, http.StatusOK, w.Code)

		body := decodeDecision(t, w)
		assert.Equal(t, "alice", body.Identity)
		assert.Equal(t, int64(1), body.Count)
		assert.Equal(t, int64(2), body.Limit)
		assert.Equal(t, int64(1), body.Remaining)
		assert.False(t, body.Limited)
		assert.True(t, start.Add(time.Hour).Equal(body.ResetAt))
		assert.Empty(t, body.Message)
	})

	t.Run("returns limited decision with 200", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		postEvaluate(router, "alice")

		w := postEvaluate(router, "alice")

		require.Equal(t, http.StatusOK, w.Code)

		body := decodeDecision(t, w)
		assert.True(t, body.Limited)
		assert.Equal(t, int64(2), body.Count)
		assert.Equal(t, int64(0), body.Remaining)
		assert.Contains(t, body.Message, "maximum number of 1 requests per hour")
	})

	t.Run("is not counted by the middleware", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		// No identity header: the middleware would answer 401 if it ran.
		w := postEvaluate(router, "alice")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(middleware.HeaderCount))
	})

	t.Run("returns 400 on blank identity", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		w := postEvaluate(router, "   ")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 503 when store is unavailable", func(t *testing.T) {
		err := fmt.Errorf("%w: connection refused", ratelimit.ErrStoreUnavailable)
		router := newRouter(t, &failingEvaluator{err: err})

		w := postEvaluate(router, "alice")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("returns 500 on unexpected error", func(t *testing.T) {
		router := newRouter(t, &failingEvaluator{err: errors.New("boom")})

		w := postEvaluate(router, "alice")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimitHandler_Ping(t *testing.T) {
	get := func(router http.Handler, identity string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		if identity != "" {
			req.Header.Set(middleware.DefaultIdentityHeader, identity)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	t.Run("answers pong within quota", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		w := get(router, "alice")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"pong"}`, strings.TrimSpace(removeSchema(t, w.Body.Bytes())))
		assert.Equal(t, "1", w.Header().Get(middleware.HeaderCount))
		assert.Equal(t, "0", w.Header().Get(middleware.HeaderRemaining))
	})

	t.Run("rejects over quota", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		get(router, "alice")

		w := get(router, "alice")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "3600", w.Header().Get(middleware.HeaderRetryAfter))
		assert.Contains(t, w.Body.String(), "Please try again after March 1, 2024, 01:00:00 PM UTC.")
	})

	t.Run("rejects missing identity", func(t *testing.T) {
		router := newRouter(t, newLimiter(t, 1))

		w := get(router, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "user identity not found")
	})
}

// removeSchema drops the $schema link huma adds to JSON bodies.
func removeSchema(t *testing.T, raw []byte) string {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	delete(m, "$schema")

	out, err := json.Marshal(m)
	require.NoError(t, err)

	return string(out)
}
