package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
)

// RegisterRoutes registers the rate limit routes.
func RegisterRoutes(api huma.API, h *RateLimitHandler) {
	// POST /v1/evaluate counts against the identity in the body, so the
	// middleware must not count the calling service as well.
	huma.Register(api, huma.Operation{
		OperationID: "evaluate-rate-limit",
		Method:      http.MethodPost,
		Path:        "/v1/evaluate",
		Summary:     "Evaluate rate limit",
		Description: "Counts one request for the identity and returns the admission decision.",
		Tags:        []string{"Rate limit"},
		Metadata:    ratelimit.Skip(),
	}, h.Evaluate)

	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/v1/ping",
		Summary:     "Ping",
		Description: "Returns pong when the caller is within its rate limit.",
		Tags:        []string{"Rate limit"},
	}, h.Ping)
}
