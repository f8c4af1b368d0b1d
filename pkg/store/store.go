// Package store provides durable storage for the platform's records.
//
// Two parallel backends implement the same contracts: PostgreSQL for
// hosted deployments and embedded SQLite for single-node ones. Both
// enforce the uniqueness invariants (one account per normalized email,
// one application per (opportunity, volunteer) pair) with unique indexes
// rather than application-level checks alone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateApplication is returned when a volunteer applies twice
	// to the same opportunity
	ErrDuplicateApplication = errors.New("application already exists")
)

// NormalizeEmail lowercases and trims an email address. Every lookup and
// insert goes through this so the uniqueness invariant holds regardless
// of how the caller spelled the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is an identity record. The password hash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Interests    string    `json:"interests,omitempty"`
	Skills       string    `json:"skills,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfileUpdate carries a partial profile mutation. Only non-nil fields
// are written; omitted fields retain their stored values.
type ProfileUpdate struct {
	Name      *string
	Phone     *string
	Bio       *string
	Interests *string
	Skills    *string
	AvatarURL *string
}

// Organization is an NGO profile owned by an organization-role user
type Organization struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Website      string    `json:"website,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	FocusArea    string    `json:"focus_area,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrganizationFilter narrows organization listings
type OrganizationFilter struct {
	City      string
	FocusArea string
	// IncludeUnapproved lifts the approved-only restriction (admin views)
	IncludeUnapproved bool
}

// Opportunity is a volunteering opening published by an organization.
// OrgName and OrgLogo are joined from the owning organization on reads.
type Opportunity struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location,omitempty"`
	Date           time.Time `json:"date"`
	RequiredSkills string    `json:"required_skills,omitempty"`
	AvailableSlots int       `json:"available_slots"`
	Category       string    `json:"category,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	OrgName        string    `json:"org_name,omitempty"`
	OrgLogo        string    `json:"org_logo,omitempty"`
}

// OpportunityFilter narrows opportunity listings
type OpportunityFilter struct {
	Category string
	City     string
}

// Application statuses
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Application links a volunteer to an opportunity. At most one exists
// per (opportunity, volunteer) pair.
type Application struct {
	ID          string    `json:"id"`
	OppID       string    `json:"opp_id"`
	VolunteerID string    `json:"volunteer_id"`
	Status      string    `json:"status"`
	AppliedAt   time.Time `json:"applied_at"`
	OppTitle    string    `json:"opp_title,omitempty"`
	OrgName     string    `json:"org_name,omitempty"`
}

// HoursEntry records volunteered time against an opportunity
type HoursEntry struct {
	ID          string    `json:"id"`
	VolunteerID string    `json:"volunteer_id"`
	OppID       string    `json:"opp_id"`
	Hours       float64   `json:"hours"`
	Date        time.Time `json:"date"`
}

// UserStore is the credential store: durable storage and lookup of
// identity records.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// OrganizationStore stores NGO profiles
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizations(ctx context.Context, filter OrganizationFilter) ([]*Organization, error)
	ApproveOrganization(ctx context.Context, id string) error
}

// OpportunityStore stores volunteering openings
type OpportunityStore interface {
	CreateOpportunity(ctx context.Context, opp *Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*Opportunity, error)
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]*Opportunity, error)
	CountOpportunities(ctx context.Context) (int64, error)
}

// ApplicationStore stores volunteer applications
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *Application) error
	ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]*Application, error)
	CountApplicationsByVolunteer(ctx context.Context, volunteerID string) (int64, error)
}

// HoursStore stores volunteered time
type HoursStore interface {
	RecordHours(ctx context.Context, entry *HoursEntry) error
	TotalHours(ctx context.Context, volunteerID string) (float64, error)
}

// Store aggregates every storage contract plus lifecycle operations
type Store interface {
	UserStore
	OrganizationStore
	OpportunityStore
	ApplicationStore
	HoursStore

	// DB exposes the underlying handle for health probes and pool metrics
	DB() *sql.DB
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Config for the storage backend
type Config struct {
	Driver string // "postgres" or "sqlite"

	// PostgreSQL config
	PostgresURL  string
	MaxOpenConns int
	MaxIdleConns int
	ConnTimeout  time.Duration

	// SQLite config
	SQLitePath string

	// Seed controls whether fixture data is loaded on startup
	Seed bool
}

// DefaultConfig returns sensible defaults (embedded SQLite)
func DefaultConfig() Config {
	return Config{
		Driver:       "sqlite",
		SQLitePath:   "volunteerhub.db",
		MaxOpenConns: 20,
		MaxIdleConns: 2,
		ConnTimeout:  10 * time.Second,
	}
}

// Open creates the store selected by cfg.Driver
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresStore(cfg)
	case "sqlite":
		return NewSQLiteStore(cfg)
	default:
		return nil, fmt.Errorf("invalid storage driver: %s (must be postgres or sqlite)", cfg.Driver)
	}
}
