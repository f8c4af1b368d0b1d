// Package middleware provides HTTP middleware gating protected routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/contextkeys"
	"github.com/volunteerhub/volunteerhub/pkg/httputil"
)

// TokenVerifier verifies a bearer token and returns its claims
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token ID has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RejectCounter records rejected bearer tokens by reason
type RejectCounter interface {
	TokenRejected(reason string)
}

// AuthMiddleware authenticates requests carrying a bearer session token.
// Requests without a valid token are rejected before any handler runs.
type AuthMiddleware struct {
	verifier TokenVerifier
	denylist RevocationChecker // nil when logout-before-expiry is not configured
	rejects  RejectCounter     // nil when metrics are disabled
}

// NewAuthMiddleware creates an authentication middleware. The denylist
// may be nil; verification is then purely stateless.
func NewAuthMiddleware(verifier TokenVerifier, denylist RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		denylist: denylist,
	}
}

// WithMetrics enables reject counting on the middleware
func (m *AuthMiddleware) WithMetrics(rejects RejectCounter) *AuthMiddleware {
	m.rejects = rejects
	return m
}

func (m *AuthMiddleware) reject(reason string) {
	if m.rejects != nil {
		m.rejects.TokenRejected(reason)
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject("missing")
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.reject("malformed")
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.reject("expired")
				httputil.WriteUnauthorized(w, "token expired")
				return
			}
			m.reject("invalid")
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}

		if m.denylist != nil {
			revoked, err := m.denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				httputil.WriteInternalError(w)
				return
			}
			if revoked {
				m.reject("revoked")
				httputil.WriteUnauthorized(w, "token revoked")
				return
			}
		}

		ctx := contextkeys.WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims extracts the authenticated claims from a request.
// Returns nil on unauthenticated requests.
func GetClaims(r *http.Request) *auth.Claims {
	claims, ok := r.Context().Value(contextkeys.ClaimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RequireRole creates middleware that rejects callers without the given role
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if claims.Role != role {
				httputil.WriteForbidden(w, "insufficient role permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
