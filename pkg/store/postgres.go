package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('volunteer', 'organization', 'admin')),
	avatar_url    TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	interests     TEXT NOT NULL DEFAULT '',
	skills        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS organizations (
	id            TEXT PRIMARY KEY,
	user_id       TEXT REFERENCES users(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	contact_email TEXT NOT NULL DEFAULT '',
	focus_area    TEXT NOT NULL DEFAULT '',
	logo_url      TEXT NOT NULL DEFAULT '',
	is_approved   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS opportunities (
	id              TEXT PRIMARY KEY,
	org_id          TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	date            TIMESTAMPTZ,
	required_skills TEXT NOT NULL DEFAULT '',
	available_slots INTEGER NOT NULL DEFAULT 0,
	category        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY,
	opp_id       TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	volunteer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
	applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS applications_unique ON applications (opp_id, volunteer_id);

CREATE TABLE IF NOT EXISTS volunteer_hours (
	id           TEXT PRIMARY KEY,
	volunteer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	opp_id       TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	hours        DOUBLE PRECISION NOT NULL,
	date         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore implements Store on a hosted PostgreSQL database
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and verifies the connection
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB exposes the underlying handle for health probes and pool metrics
func (s *PostgresStore) DB() *sql.DB { return s.db }

// Migrate applies the schema
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool
func (s *PostgresStore) Close() error { return s.db.Close() }

// pgUniqueViolation maps a pq unique-constraint error onto the matching
// sentinel by constraint name.
func pgUniqueViolation(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "users_email_unique":
		return ErrDuplicateEmail
	case "applications_unique":
		return ErrDuplicateApplication
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, avatar_url, phone, bio, interests, skills)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.AvatarURL, user.Phone, user.Bio, user.Interests, user.Skills).Scan(&user.CreatedAt)
	if err != nil {
		if dup := pgUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const pgUserColumns = `id, name, email, password_hash, role, avatar_url, phone, bio, interests, skills, created_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.AvatarURL, &user.Phone, &user.Bio, &user.Interests, &user.Skills, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE LOWER(email) = $1`, NormalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	set := []string{}
	args := []interface{}{}

	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("name", upd.Name)
	add("phone", upd.Phone)
	add("bio", upd.Bio)
	add("interests", upd.Interests)
	add("skills", upd.Skills)
	add("avatar_url", upd.AvatarURL)

	if len(set) > 0 {
		args = append(args, id)
		query := "UPDATE users SET " + strings.Join(set, ", ") + fmt.Sprintf(" WHERE id = $%d", len(args))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetUserByID(ctx, id)
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *Organization) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (id, user_id, name, description, city, state, website, contact_email, focus_area, logo_url, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, org.ID, org.UserID, org.Name, org.Description, org.City, org.State,
		org.Website, org.ContactEmail, org.FocusArea, org.LogoURL, org.IsApproved).Scan(&org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

const pgOrgColumns = `id, user_id, name, description, city, state, website, contact_email, focus_area, logo_url, is_approved, created_at`

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	org := &Organization{}
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+pgOrgColumns+` FROM organizations WHERE id = $1`, id,
	).Scan(&org.ID, &userID, &org.Name, &org.Description, &org.City, &org.State,
		&org.Website, &org.ContactEmail, &org.FocusArea, &org.LogoURL, &org.IsApproved, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	org.UserID = userID.String
	return org, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context, filter OrganizationFilter) ([]*Organization, error) {
	query := `SELECT ` + pgOrgColumns + ` FROM organizations`
	where := []string{}
	args := []interface{}{}

	if !filter.IncludeUnapproved {
		where = append(where, "is_approved = TRUE")
	}
	if filter.City != "" {
		args = append(args, filter.City)
		where = append(where, fmt.Sprintf("city = $%d", len(args)))
	}
	if filter.FocusArea != "" {
		args = append(args, filter.FocusArea)
		where = append(where, fmt.Sprintf("focus_area = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*Organization, 0)
	for rows.Next() {
		org := &Organization{}
		var userID sql.NullString
		if err := rows.Scan(&org.ID, &userID, &org.Name, &org.Description, &org.City, &org.State,
			&org.Website, &org.ContactEmail, &org.FocusArea, &org.LogoURL, &org.IsApproved, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		org.UserID = userID.String
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (s *PostgresStore) ApproveOrganization(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to approve organization: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, opp *Opportunity) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO opportunities (id, org_id, title, description, location, date, required_skills, available_slots, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, opp.ID, opp.OrgID, opp.Title, opp.Description, opp.Location, opp.Date,
		opp.RequiredSkills, opp.AvailableSlots, opp.Category).Scan(&opp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}
	return nil
}

const pgOppColumns = `o.id, o.org_id, o.title, o.description, o.location, o.date, o.required_skills,
	o.available_slots, o.category, o.created_at, org.name, org.logo_url`

func scanOpportunity(scan func(...interface{}) error) (*Opportunity, error) {
	opp := &Opportunity{}
	var date sql.NullTime
	err := scan(&opp.ID, &opp.OrgID, &opp.Title, &opp.Description, &opp.Location, &date,
		&opp.RequiredSkills, &opp.AvailableSlots, &opp.Category, &opp.CreatedAt, &opp.OrgName, &opp.OrgLogo)
	if err != nil {
		return nil, err
	}
	opp.Date = date.Time
	return opp, nil
}

func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (*Opportunity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pgOppColumns+`
		FROM opportunities o
		JOIN organizations org ON o.org_id = org.id
		WHERE o.id = $1
	`, id)
	opp, err := scanOpportunity(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	return opp, nil
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]*Opportunity, error) {
	query := `
		SELECT ` + pgOppColumns + `
		FROM opportunities o
		JOIN organizations org ON o.org_id = org.id`
	where := []string{}
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("o.category = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		where = append(where, fmt.Sprintf("o.location = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	opps := make([]*Opportunity, 0)
	for rows.Next() {
		opp, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

func (s *PostgresStore) CountOpportunities(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app *Application) error {
	if app.Status == "" {
		app.Status = ApplicationPending
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO applications (id, opp_id, volunteer_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING applied_at
	`, app.ID, app.OppID, app.VolunteerID, app.Status).Scan(&app.AppliedAt)
	if err != nil {
		if dup := pgUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]*Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.opp_id, a.volunteer_id, a.status, a.applied_at, o.title, org.name
		FROM applications a
		JOIN opportunities o ON a.opp_id = o.id
		JOIN organizations org ON o.org_id = org.id
		WHERE a.volunteer_id = $1
		ORDER BY a.applied_at DESC
	`, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*Application, 0)
	for rows.Next() {
		app := &Application{}
		if err := rows.Scan(&app.ID, &app.OppID, &app.VolunteerID, &app.Status,
			&app.AppliedAt, &app.OppTitle, &app.OrgName); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *PostgresStore) CountApplicationsByVolunteer(ctx context.Context, volunteerID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE volunteer_id = $1`, volunteerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) RecordHours(ctx context.Context, entry *HoursEntry) error {
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volunteer_hours (id, volunteer_id, opp_id, hours, date)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.VolunteerID, entry.OppID, entry.Hours, entry.Date)
	if err != nil {
		return fmt.Errorf("failed to record hours: %w", err)
	}
	return nil
}

func (s *PostgresStore) TotalHours(ctx context.Context, volunteerID string) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM volunteer_hours WHERE volunteer_id = $1`, volunteerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum hours: %w", err)
	}
	return total, nil
}
