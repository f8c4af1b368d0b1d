// Package users implements account registration, login, profiles and
// volunteer statistics.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/store"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned for any failed login attempt.
	// Whether the email or the password was wrong is never disclosed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already
	// has an account
	ErrEmailTaken = errors.New("user already exists")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TokenIssuer mints session tokens for authenticated users
type TokenIssuer interface {
	Issue(userID string, role auth.Role) (string, error)
}

// PasswordHasher hashes and verifies user passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) bool
}

// Service implements account operations against the credential store
type Service struct {
	users  store.UserStore
	apps   store.ApplicationStore
	hours  store.HoursStore
	hasher PasswordHasher
	tokens TokenIssuer
}

// NewService creates a user service
func NewService(users store.UserStore, apps store.ApplicationStore, hours store.HoursStore, hasher PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{
		users:  users,
		apps:   apps,
		hours:  hours,
		hasher: hasher,
		tokens: tokens,
	}
}

// RegisterInput is the input to Register
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
}

// Session is an authenticated session: a signed token plus the account
// it belongs to. The account's password hash is stripped before this
// ever crosses the API boundary.
type Session struct {
	Token string
	User  *store.User
}

// Register creates a new account and logs it in. The email is
// normalized before storage; registering an address that differs from
// an existing one only in case fails with ErrEmailTaken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name is required")
	}
	email := store.NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not a valid address")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalid("password must be at least %d characters", MinPasswordLength)
	}

	role := in.Role
	if role == "" {
		role = auth.RoleVolunteer
	}
	// Admin accounts are provisioned out of band, never self-registered.
	if role != auth.RoleVolunteer && role != auth.RoleOrganization {
		return nil, invalid("role must be volunteer or organization")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &Session{Token: token, User: user}, nil
}

// Login authenticates an email/password pair and returns a fresh
// session. Every failure path returns ErrInvalidCredentials; a missing
// account and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &Session{Token: token, User: user}, nil
}

// Profile returns the account identified by userID
func (s *Service) Profile(ctx context.Context, userID string) (*store.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// UpdateProfile applies a partial profile update. Fields absent from
// the update keep their stored values; a client omitting a field can
// never blank it by accident.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd store.ProfileUpdate) (*store.User, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, invalid("name cannot be empty")
	}
	return s.users.UpdateUserProfile(ctx, userID, upd)
}

// Badge is an achievement derived from a volunteer's activity
type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Earned      bool   `json:"earned"`
}

// Stats summarizes a volunteer's activity
type Stats struct {
	TotalHours   float64 `json:"total_hours"`
	Applications int64   `json:"applications"`
	Badges       []Badge `json:"badges"`
}

// Stats computes a volunteer's activity summary. Badges are derived on
// read from hours and application counts; nothing is stored.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	hours, err := s.hours.TotalHours(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to total hours: %w", err)
	}
	applications, err := s.apps.CountApplicationsByVolunteer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	return &Stats{
		TotalHours:   hours,
		Applications: applications,
		Badges: []Badge{
			{
				Name:        "First Step",
				Description: "Applied to your first volunteer opportunity",
				Earned:      applications >= 1,
			},
			{
				Name:        "Dedicated Volunteer",
				Description: "Applied to 5 volunteer opportunities",
				Earned:      applications >= 5,
			},
			{
				Name:        "Time Giver",
				Description: "Contributed 10+ hours of volunteering",
				Earned:      hours >= 10,
			},
			{
				Name:        "Community Pillar",
				Description: "Contributed 50+ hours of volunteering",
				Earned:      hours >= 50,
			},
		},
	}, nil
}
