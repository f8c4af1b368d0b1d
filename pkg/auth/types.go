package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse authorization tag carried by every user account
// and every session token.
type Role string

const (
	RoleVolunteer    Role = "volunteer"    // Can apply to opportunities
	RoleOrganization Role = "organization" // Owns an organization profile
	RoleAdmin        Role = "admin"        // Full platform access
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r Role) bool {
	switch r {
	case RoleVolunteer, RoleOrganization, RoleAdmin:
		return true
	}
	return false
}

// Claims is the payload carried by a session token. The token is
// self-contained: no session state is kept server-side.
type Claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

var (
	// ErrTokenInvalid is returned for malformed or tampered tokens
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired is returned for tokens past their expiry
	ErrTokenExpired = errors.New("token is expired")
)
