package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/store"
)

func TestListOrganizations_Public(t *testing.T) {
	server, deps := newTestServer(t)
	var gotCity, gotFocus string
	deps.orgs.listFn = func(_ context.Context, city, focusArea string) ([]*store.Organization, error) {
		gotCity, gotFocus = city, focusArea
		return []*store.Organization{{ID: "o1", Name: "Green Earth", IsApproved: true}}, nil
	}

	rec := doJSON(t, server, "GET", "/api/organizations?city=Pune&focus_area=environment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pune", gotCity)
	assert.Equal(t, "environment", gotFocus)

	var orgs []*store.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, "Green Earth", orgs[0].Name)
}

func TestGetOrganization_NotFound(t *testing.T) {
	server, deps := newTestServer(t)
	deps.orgs.getFn = func(_ context.Context, _ string) (*store.Organization, error) {
		return nil, store.ErrNotFound
	}

	rec := doJSON(t, server, "GET", "/api/organizations/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "organization not found", errorMessage(t, rec))
}

func TestApproveOrganization_RequiresAdmin(t *testing.T) {
	server, deps := newTestServer(t)
	deps.orgs.approveFn = func(_ context.Context, _ string) error { return nil }

	// No token at all.
	rec := doJSON(t, server, "POST", "/api/admin/organizations/o1/approve", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Volunteer session.
	volunteerToken, err := deps.issuer.Issue("u1", auth.RoleVolunteer)
	require.NoError(t, err)
	rec = doJSON(t, server, "POST", "/api/admin/organizations/o1/approve", volunteerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin session.
	adminToken, err := deps.issuer.Issue("a1", auth.RoleAdmin)
	require.NoError(t, err)
	rec = doJSON(t, server, "POST", "/api/admin/organizations/o1/approve", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminListOrganizations_IncludesUnapproved(t *testing.T) {
	server, deps := newTestServer(t)
	deps.orgs.listAllFn = func(_ context.Context) ([]*store.Organization, error) {
		return []*store.Organization{
			{ID: "o1", IsApproved: true},
			{ID: "o2", IsApproved: false},
		}, nil
	}

	adminToken, err := deps.issuer.Issue("a1", auth.RoleAdmin)
	require.NoError(t, err)

	rec := doJSON(t, server, "GET", "/api/admin/organizations", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orgs []*store.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orgs))
	assert.Len(t, orgs, 2)
}
