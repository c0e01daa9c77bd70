package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultPingTimeout = 2 * time.Second

// Checker defines the interface for checking the counter store.
type Checker interface {
	Ping(ctx context.Context) error
}

// Handler handles health check operations.
type Handler struct {
	store   Checker
	backend string
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a new health handler. backend names the counter store in the response.
func NewHandler(store Checker, backend string, logger *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		backend: backend,
		timeout: defaultPingTimeout,
		logger:  logger,
	}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status  string `example:"ok"      json:"status"`
		Store   string `example:"healthy" json:"store"`
		Backend string `example:"redis"   json:"backend"`
	}
}

// Check reports ok when the counter store answers, degraded otherwise.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Backend = h.backend

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("counter store health check failed",
			zap.String("backend", h.backend), zap.Error(err))

		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Store = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes outside of rate limiting.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata:    ratelimit.Skip(),
	}, h.Check)
}
