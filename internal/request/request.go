package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// HeaderRequestID is the header used to propagate request ids
const HeaderRequestID = "X-Request-ID"

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// NewID returns a fresh request id
func NewID() string {
	return uuid.NewString()
}

// WithID returns a context carrying the request id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// IDFromContext returns the request id, or "" when none is set
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// IDFromRequest returns a valid caller-supplied request id or generates a new one
func IDFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderRequestID)); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return NewID()
}
