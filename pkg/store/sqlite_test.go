package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(Config{SQLitePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testUser(email string) *User {
	return &User{
		ID:           uuid.NewString(),
		Name:         "Jane",
		Email:        email,
		PasswordHash: "hash",
		Role:         auth.RoleVolunteer,
	}
}

func TestSQLite_UserRoundtrip(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	user := testUser("Jane@Example.com")
	require.NoError(t, st.CreateUser(ctx, user))
	assert.Equal(t, "jane@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := st.GetUserByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)

	_, err = st.GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("jane@example.com")))

	err := st.CreateUser(ctx, testUser("JANE@Example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSQLite_UpdateUserProfile(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	user := testUser("jane@example.com")
	user.Phone = "555-0100"
	require.NoError(t, st.CreateUser(ctx, user))

	bio := "I plant trees"
	updated, err := st.UpdateUserProfile(ctx, user.ID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "I plant trees", updated.Bio)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "Jane", updated.Name)

	_, err = st.UpdateUserProfile(ctx, "missing", ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedOrgWithOpp(t *testing.T, st *SQLiteStore, approved bool) (*Organization, *Opportunity) {
	t.Helper()
	ctx := context.Background()

	org := &Organization{
		ID:         uuid.NewString(),
		Name:       "Green Earth",
		City:       "Pune",
		FocusArea:  "environment",
		LogoURL:    "https://cdn/logo.png",
		IsApproved: approved,
	}
	require.NoError(t, st.CreateOrganization(ctx, org))

	opp := &Opportunity{
		ID:             uuid.NewString(),
		OrgID:          org.ID,
		Title:          "Tree Plantation",
		Description:    "Plant trees",
		Location:       "Pune",
		Date:           time.Now().UTC().AddDate(0, 0, 7),
		AvailableSlots: 40,
		Category:       "environment",
	}
	require.NoError(t, st.CreateOpportunity(ctx, opp))
	return org, opp
}

func TestSQLite_OrganizationFiltering(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	seedOrgWithOpp(t, st, true)
	pending := &Organization{ID: uuid.NewString(), Name: "Pending Org", City: "Pune"}
	require.NoError(t, st.CreateOrganization(ctx, pending))

	orgs, err := st.ListOrganizations(ctx, OrganizationFilter{})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Green Earth", orgs[0].Name)

	orgs, err = st.ListOrganizations(ctx, OrganizationFilter{IncludeUnapproved: true})
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	orgs, err = st.ListOrganizations(ctx, OrganizationFilter{City: "Mumbai"})
	require.NoError(t, err)
	assert.Empty(t, orgs)

	require.NoError(t, st.ApproveOrganization(ctx, pending.ID))
	orgs, err = st.ListOrganizations(ctx, OrganizationFilter{})
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestSQLite_OpportunityJoinsOrg(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	_, opp := seedOrgWithOpp(t, st, true)

	got, err := st.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Earth", got.OrgName)
	assert.Equal(t, "https://cdn/logo.png", got.OrgLogo)

	listing, err := st.ListOpportunities(ctx, OpportunityFilter{Category: "environment"})
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, opp.ID, listing[0].ID)

	listing, err = st.ListOpportunities(ctx, OpportunityFilter{City: "Mumbai"})
	require.NoError(t, err)
	assert.Empty(t, listing)
}

func TestSQLite_ApplicationUniqueness(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	user := testUser("jane@example.com")
	require.NoError(t, st.CreateUser(ctx, user))
	_, opp := seedOrgWithOpp(t, st, true)

	app := &Application{OppID: opp.ID, VolunteerID: user.ID}
	require.NoError(t, st.CreateApplication(ctx, app))
	assert.Equal(t, ApplicationPending, app.Status)
	assert.NotEmpty(t, app.ID)

	dup := &Application{OppID: opp.ID, VolunteerID: user.ID}
	err := st.CreateApplication(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateApplication)

	apps, err := st.ListApplicationsByVolunteer(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Tree Plantation", apps[0].OppTitle)
	assert.Equal(t, "Green Earth", apps[0].OrgName)

	count, err := st.CountApplicationsByVolunteer(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLite_Hours(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	user := testUser("jane@example.com")
	require.NoError(t, st.CreateUser(ctx, user))
	_, opp := seedOrgWithOpp(t, st, true)

	require.NoError(t, st.RecordHours(ctx, &HoursEntry{VolunteerID: user.ID, OppID: opp.ID, Hours: 4.5}))
	require.NoError(t, st.RecordHours(ctx, &HoursEntry{VolunteerID: user.ID, OppID: opp.ID, Hours: 8}))

	total, err := st.TotalHours(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, total)

	total, err = st.TotalHours(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, total)
}
