package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// DefaultIdentityHeader is the header read by HeaderIdentityResolver when none is configured.
const DefaultIdentityHeader = "X-User-ID"

// IdentityResolver determines the rate limit identity of a request.
type IdentityResolver interface {
	Resolve(ctx huma.Context) (identity string, ok bool)
}

// HeaderIdentityResolver reads the identity from a request header.
type HeaderIdentityResolver struct {
	header string
}

// NewHeaderIdentityResolver creates a resolver for the given header.
func NewHeaderIdentityResolver(header string) *HeaderIdentityResolver {
	if header == "" {
		header = DefaultIdentityHeader
	}

	return &HeaderIdentityResolver{header: header}
}

// Resolve returns the trimmed header value.
func (r *HeaderIdentityResolver) Resolve(ctx huma.Context) (string, bool) {
	v := strings.TrimSpace(ctx.Header(r.header))

	return v, v != ""
}

// ClientIdentityResolver identifies anonymous clients by IP and User-Agent.
type ClientIdentityResolver struct{}

// NewClientIdentityResolver creates a new client identity resolver.
func NewClientIdentityResolver() *ClientIdentityResolver {
	return &ClientIdentityResolver{}
}

// Resolve returns a hash of the client IP and User-Agent.
func (r *ClientIdentityResolver) Resolve(ctx huma.Context) (string, bool) {
	ip := clientIP(ctx)
	if ip == "" {
		return "", false
	}

	return "client:" + clientKey(ip, ctx.Header("User-Agent")), true
}

// ChainResolver tries each resolver in order and returns the first identity found.
type ChainResolver []IdentityResolver

func (c ChainResolver) Resolve(ctx huma.Context) (string, bool) {
	for _, r := range c {
		if identity, ok := r.Resolve(ctx); ok {
			return identity, true
		}
	}

	return "", false
}

// clientKey generates a stable key for the client from IP and User-Agent.
func clientKey(ip, ua string) string {
	hash := sha256.Sum256([]byte(ip + "|" + ua))

	return hex.EncodeToString(hash[:])
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	// Check X-Forwarded-For header (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host := ctx.RemoteAddr()
	if host == "" {
		host = ctx.Host()
	}

	ip, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	return ip
}
