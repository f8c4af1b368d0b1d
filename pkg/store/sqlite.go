package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
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
	created_at    TIMESTAMP NOT NULL
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
	is_approved   BOOLEAN NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id              TEXT PRIMARY KEY,
	org_id          TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	date            TIMESTAMP,
	required_skills TEXT NOT NULL DEFAULT '',
	available_slots INTEGER NOT NULL DEFAULT 0,
	category        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY,
	opp_id       TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	volunteer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
	applied_at   TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS applications_unique ON applications (opp_id, volunteer_id);

CREATE TABLE IF NOT EXISTS volunteer_hours (
	id           TEXT PRIMARY KEY,
	volunteer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	opp_id       TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	hours        REAL NOT NULL,
	date         TIMESTAMP NOT NULL
);
`

// SQLiteStore implements Store on an embedded SQLite database.
// Single-node deployments use this backend; it needs no external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if necessary) the database file
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", cfg.SQLitePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent request handling.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health probes and pool metrics
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Migrate applies the schema
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle
func (s *SQLiteStore) Close() error { return s.db.Close() }

// sqliteUniqueViolation maps a unique-constraint error onto the matching
// sentinel. SQLite reports the failing index in the error text.
func sqliteUniqueViolation(err error) error {
	sqErr, ok := err.(sqlite3.Error)
	if !ok || sqErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users"):
		return ErrDuplicateEmail
	case strings.Contains(msg, "applications"):
		return ErrDuplicateApplication
	}
	return nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, avatar_url, phone, bio, interests, skills, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.AvatarURL, user.Phone, user.Bio, user.Interests, user.Skills, user.CreatedAt)
	if err != nil {
		if dup := sqliteUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const sqliteUserColumns = `id, name, email, password_hash, role, avatar_url, phone, bio, interests, skills, created_at`

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE LOWER(email) = ?`, NormalizeEmail(email))
	return scanUser(row)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	set := []string{}
	args := []interface{}{}

	add := func(column string, value *string) {
		if value != nil {
			set = append(set, column+" = ?")
			args = append(args, *value)
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
		query := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = ?"
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

func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, user_id, name, description, city, state, website, contact_email, focus_area, logo_url, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, org.ID, org.UserID, org.Name, org.Description, org.City, org.State,
		org.Website, org.ContactEmail, org.FocusArea, org.LogoURL, org.IsApproved, org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

const sqliteOrgColumns = `id, user_id, name, description, city, state, website, contact_email, focus_area, logo_url, is_approved, created_at`

func (s *SQLiteStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	org := &Organization{}
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteOrgColumns+` FROM organizations WHERE id = ?`, id,
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

func (s *SQLiteStore) ListOrganizations(ctx context.Context, filter OrganizationFilter) ([]*Organization, error) {
	query := `SELECT ` + sqliteOrgColumns + ` FROM organizations`
	where := []string{}
	args := []interface{}{}

	if !filter.IncludeUnapproved {
		where = append(where, "is_approved = 1")
	}
	if filter.City != "" {
		where = append(where, "city = ?")
		args = append(args, filter.City)
	}
	if filter.FocusArea != "" {
		where = append(where, "focus_area = ?")
		args = append(args, filter.FocusArea)
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

func (s *SQLiteStore) ApproveOrganization(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET is_approved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to approve organization: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, opp *Opportunity) error {
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunities (id, org_id, title, description, location, date, required_skills, available_slots, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, opp.ID, opp.OrgID, opp.Title, opp.Description, opp.Location, opp.Date,
		opp.RequiredSkills, opp.AvailableSlots, opp.Category, opp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (*Opportunity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pgOppColumns+`
		FROM opportunities o
		JOIN organizations org ON o.org_id = org.id
		WHERE o.id = ?
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

func (s *SQLiteStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]*Opportunity, error) {
	query := `
		SELECT ` + pgOppColumns + `
		FROM opportunities o
		JOIN organizations org ON o.org_id = org.id`
	where := []string{}
	args := []interface{}{}

	if filter.Category != "" {
		where = append(where, "o.category = ?")
		args = append(args, filter.Category)
	}
	if filter.City != "" {
		where = append(where, "o.location = ?")
		args = append(args, filter.City)
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

func (s *SQLiteStore) CountOpportunities(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CreateApplication(ctx context.Context, app *Application) error {
	if app.Status == "" {
		app.Status = ApplicationPending
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, opp_id, volunteer_id, status, applied_at)
		VALUES (?, ?, ?, ?, ?)
	`, app.ID, app.OppID, app.VolunteerID, app.Status, app.AppliedAt)
	if err != nil {
		if dup := sqliteUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]*Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.opp_id, a.volunteer_id, a.status, a.applied_at, o.title, org.name
		FROM applications a
		JOIN opportunities o ON a.opp_id = o.id
		JOIN organizations org ON o.org_id = org.id
		WHERE a.volunteer_id = ?
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

func (s *SQLiteStore) CountApplicationsByVolunteer(ctx context.Context, volunteerID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE volunteer_id = ?`, volunteerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) RecordHours(ctx context.Context, entry *HoursEntry) error {
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volunteer_hours (id, volunteer_id, opp_id, hours, date)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.VolunteerID, entry.OppID, entry.Hours, entry.Date)
	if err != nil {
		return fmt.Errorf("failed to record hours: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TotalHours(ctx context.Context, volunteerID string) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM volunteer_hours WHERE volunteer_id = ?`, volunteerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum hours: %w", err)
	}
	return total, nil
}
