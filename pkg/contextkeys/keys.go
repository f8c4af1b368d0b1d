// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage
// discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ClaimsKey contains *auth.Claims
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all protected API endpoints, role gates
	ClaimsKey Key = "auth_claims"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, request tracing
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: handlers that need structured logging with request context
	LoggerKey Key = "logger"
)

// WithClaims adds authenticated token claims to the context
func WithClaims(ctx context.Context, claims interface{}) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
