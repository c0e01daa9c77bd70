package middleware

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for identity resolution and analytics.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Path      string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// RequestMeta is a middleware that adds request ID, client IP, user-agent and path to the request context.
// Incoming request IDs are kept; otherwise newID generates one. The ID is echoed in the response.
func RequestMeta(_ huma.API, newID func() string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := strings.TrimSpace(ctx.Header(RequestIDHeader))
		if requestID == "" && newID != nil {
			requestID = newID()
		}

		u := ctx.URL()

		meta := RequestMeta{
			RequestID: requestID,
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Path:      u.Path,
		}

		if requestID != "" {
			ctx.SetHeader(RequestIDHeader, requestID)
		}

		newCtx := ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}
