package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the session lifetime applied when none is configured
const DefaultTokenTTL = 24 * time.Hour

// TokenIssuer mints and verifies signed session tokens. It holds the
// server signing secret and no other state; validity is determined purely
// by signature and expiry at verification time.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer. The secret must be provisioned
// from configuration; an empty secret is a programming error caught by
// config validation before this is reached.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a signed token encoding the user's identity and role.
// The token ID (jti) identifies the session for denylisting on logout.
func (ti *TokenIssuer) Issue(userID string, role Role) (string, error) {
	now := ti.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes and validates a token string, returning its claims.
// Returns ErrTokenExpired for tokens past expiry and ErrTokenInvalid for
// anything else that fails validation.
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
