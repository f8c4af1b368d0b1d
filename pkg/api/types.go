// Package api exposes the platform's REST surface: authentication,
// profiles, the organization directory, opportunity listings and the
// application flow.
package api

import (
	"context"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/store"
	"github.com/volunteerhub/volunteerhub/pkg/users"
)

// UserService is the account surface the handlers depend on
type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.Session, error)
	Login(ctx context.Context, email, password string) (*users.Session, error)
	Profile(ctx context.Context, userID string) (*store.User, error)
	UpdateProfile(ctx context.Context, userID string, upd store.ProfileUpdate) (*store.User, error)
	Stats(ctx context.Context, userID string) (*users.Stats, error)
}

// OrgService is the organization directory surface
type OrgService interface {
	List(ctx context.Context, city, focusArea string) ([]*store.Organization, error)
	ListAll(ctx context.Context) ([]*store.Organization, error)
	Get(ctx context.Context, id string) (*store.Organization, error)
	Approve(ctx context.Context, id string) error
}

// OppService is the opportunity and application surface
type OppService interface {
	List(ctx context.Context, category, city string) ([]*store.Opportunity, error)
	Get(ctx context.Context, id string) (*store.Opportunity, error)
	Apply(ctx context.Context, oppID, volunteerID string) (*store.Application, error)
	Applications(ctx context.Context, volunteerID string) ([]*store.Application, error)
}

// TokenRevoker invalidates a session token before its natural expiry
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// AuthUser is the sanitized account shape returned by auth endpoints.
// It never carries the password hash or internal profile fields.
type AuthUser struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

func toAuthUser(u *store.User) AuthUser {
	return AuthUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
