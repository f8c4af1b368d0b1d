package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// PasswordHasher hashes plaintext passwords for seeded accounts
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// SeedConfig controls the bootstrap accounts. Empty passwords are
// replaced with random ones so no fixed credential ever ships.
type SeedConfig struct {
	AdminPassword     string
	VolunteerPassword string
}

type seedFixtures struct {
	Admin struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"admin"`
	Volunteer struct {
		Name      string `yaml:"name"`
		Email     string `yaml:"email"`
		City      string `yaml:"city"`
		Interests string `yaml:"interests"`
		Skills    string `yaml:"skills"`
	} `yaml:"volunteer"`
	Organizations []struct {
		Name          string `yaml:"name"`
		Email         string `yaml:"email"`
		Description   string `yaml:"description"`
		City          string `yaml:"city"`
		State         string `yaml:"state"`
		Website       string `yaml:"website"`
		FocusArea     string `yaml:"focus_area"`
		LogoURL       string `yaml:"logo_url"`
		Opportunities []struct {
			Title          string `yaml:"title"`
			Description    string `yaml:"description"`
			Location       string `yaml:"location"`
			Category       string `yaml:"category"`
			RequiredSkills string `yaml:"required_skills"`
			AvailableSlots int    `yaml:"available_slots"`
		} `yaml:"opportunities"`
	} `yaml:"organizations"`
}

// Seed bootstraps a usable dataset: an admin account, a demo volunteer,
// and, on a near-empty database, a set of approved organizations with
// open opportunities. Seeding is idempotent; existing accounts are left
// untouched and fixtures are skipped once the database has real users.
func Seed(ctx context.Context, st Store, hasher PasswordHasher, cfg SeedConfig) error {
	var fixtures seedFixtures
	if err := yaml.Unmarshal(fixturesYAML, &fixtures); err != nil {
		return fmt.Errorf("failed to parse seed fixtures: %w", err)
	}

	if err := ensureUser(ctx, st, hasher, &User{
		Name:  fixtures.Admin.Name,
		Email: fixtures.Admin.Email,
		Role:  auth.RoleAdmin,
	}, cfg.AdminPassword); err != nil {
		return err
	}

	volunteer := &User{
		Name:      fixtures.Volunteer.Name,
		Email:     fixtures.Volunteer.Email,
		Role:      auth.RoleVolunteer,
		Interests: fixtures.Volunteer.Interests,
		Skills:    fixtures.Volunteer.Skills,
	}
	if err := ensureUser(ctx, st, hasher, volunteer, cfg.VolunteerPassword); err != nil {
		return err
	}

	// A fresh database holds exactly the two bootstrap accounts at this
	// point. Anything more means fixtures (or real signups) already exist.
	count, err := st.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users before seeding: %w", err)
	}
	if count > 2 {
		return nil
	}

	var firstOppID string
	for i, fo := range fixtures.Organizations {
		orgUser := &User{
			Name:  fo.Name,
			Email: fo.Email,
			Role:  auth.RoleOrganization,
		}
		if err := ensureUser(ctx, st, hasher, orgUser, ""); err != nil {
			return err
		}

		org := &Organization{
			ID:           uuid.NewString(),
			UserID:       orgUser.ID,
			Name:         fo.Name,
			Description:  fo.Description,
			City:         fo.City,
			State:        fo.State,
			Website:      fo.Website,
			ContactEmail: fo.Email,
			FocusArea:    fo.FocusArea,
			LogoURL:      fo.LogoURL,
			IsApproved:   true,
		}
		if err := st.CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("failed to seed organization %q: %w", fo.Name, err)
		}

		for j, op := range fo.Opportunities {
			opp := &Opportunity{
				ID:             uuid.NewString(),
				OrgID:          org.ID,
				Title:          op.Title,
				Description:    op.Description,
				Location:       op.Location,
				Date:           time.Now().UTC().AddDate(0, 0, 7*(j+1)),
				RequiredSkills: op.RequiredSkills,
				AvailableSlots: op.AvailableSlots,
				Category:       op.Category,
			}
			if err := st.CreateOpportunity(ctx, opp); err != nil {
				return fmt.Errorf("failed to seed opportunity %q: %w", op.Title, err)
			}
			if i == 0 && j == 0 {
				firstOppID = opp.ID
			}
		}
	}

	// Give the demo volunteer a visible history so the stats view has
	// something to show on a fresh install.
	if firstOppID != "" {
		app := &Application{
			OppID:       firstOppID,
			VolunteerID: volunteer.ID,
			Status:      ApplicationApproved,
		}
		if err := st.CreateApplication(ctx, app); err != nil && !errors.Is(err, ErrDuplicateApplication) {
			return fmt.Errorf("failed to seed application: %w", err)
		}
		entry := &HoursEntry{
			VolunteerID: volunteer.ID,
			OppID:       firstOppID,
			Hours:       12,
			Date:        time.Now().UTC().AddDate(0, 0, -14),
		}
		if err := st.RecordHours(ctx, entry); err != nil {
			return fmt.Errorf("failed to seed hours: %w", err)
		}
	}

	return nil
}

// ensureUser creates the user unless an account with the same email
// already exists. On return user.ID is set either way.
func ensureUser(ctx context.Context, st Store, hasher PasswordHasher, user *User, password string) error {
	existing, err := st.GetUserByEmail(ctx, user.Email)
	if err == nil {
		user.ID = existing.ID
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up %s: %w", user.Email, err)
	}

	if password == "" {
		password = uuid.NewString()
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	user.ID = uuid.NewString()
	user.PasswordHash = hash
	if err := st.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create seed user %s: %w", user.Email, err)
	}
	return nil
}
