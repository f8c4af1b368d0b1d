package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/store"
	"github.com/volunteerhub/volunteerhub/pkg/users"
)

type mockUserService struct {
	registerFn      func(ctx context.Context, in users.RegisterInput) (*users.Session, error)
	loginFn         func(ctx context.Context, email, password string) (*users.Session, error)
	profileFn       func(ctx context.Context, userID string) (*store.User, error)
	updateProfileFn func(ctx context.Context, userID string, upd store.ProfileUpdate) (*store.User, error)
	statsFn         func(ctx context.Context, userID string) (*users.Stats, error)
}

func (m *mockUserService) Register(ctx context.Context, in users.RegisterInput) (*users.Session, error) {
	return m.registerFn(ctx, in)
}
func (m *mockUserService) Login(ctx context.Context, email, password string) (*users.Session, error) {
	return m.loginFn(ctx, email, password)
}
func (m *mockUserService) Profile(ctx context.Context, userID string) (*store.User, error) {
	return m.profileFn(ctx, userID)
}
func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, upd store.ProfileUpdate) (*store.User, error) {
	return m.updateProfileFn(ctx, userID, upd)
}
func (m *mockUserService) Stats(ctx context.Context, userID string) (*users.Stats, error) {
	return m.statsFn(ctx, userID)
}

type mockOrgService struct {
	listFn    func(ctx context.Context, city, focusArea string) ([]*store.Organization, error)
	listAllFn func(ctx context.Context) ([]*store.Organization, error)
	getFn     func(ctx context.Context, id string) (*store.Organization, error)
	approveFn func(ctx context.Context, id string) error
}

func (m *mockOrgService) List(ctx context.Context, city, focusArea string) ([]*store.Organization, error) {
	return m.listFn(ctx, city, focusArea)
}
func (m *mockOrgService) ListAll(ctx context.Context) ([]*store.Organization, error) {
	return m.listAllFn(ctx)
}
func (m *mockOrgService) Get(ctx context.Context, id string) (*store.Organization, error) {
	return m.getFn(ctx, id)
}
func (m *mockOrgService) Approve(ctx context.Context, id string) error {
	return m.approveFn(ctx, id)
}

type mockOppService struct {
	listFn         func(ctx context.Context, category, city string) ([]*store.Opportunity, error)
	getFn          func(ctx context.Context, id string) (*store.Opportunity, error)
	applyFn        func(ctx context.Context, oppID, volunteerID string) (*store.Application, error)
	applicationsFn func(ctx context.Context, volunteerID string) ([]*store.Application, error)
}

func (m *mockOppService) List(ctx context.Context, category, city string) ([]*store.Opportunity, error) {
	return m.listFn(ctx, category, city)
}
func (m *mockOppService) Get(ctx context.Context, id string) (*store.Opportunity, error) {
	return m.getFn(ctx, id)
}
func (m *mockOppService) Apply(ctx context.Context, oppID, volunteerID string) (*store.Application, error) {
	return m.applyFn(ctx, oppID, volunteerID)
}
func (m *mockOppService) Applications(ctx context.Context, volunteerID string) ([]*store.Application, error) {
	return m.applicationsFn(ctx, volunteerID)
}

type testDeps struct {
	users  *mockUserService
	orgs   *mockOrgService
	opps   *mockOppService
	issuer *auth.TokenIssuer
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		users:  &mockUserService{},
		orgs:   &mockOrgService{},
		opps:   &mockOppService{},
		issuer: auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour),
	}
	server := NewServer(Options{
		Users:       deps.users,
		Orgs:        deps.orgs,
		Opps:        deps.opps,
		Verifier:    deps.issuer,
		Logger:      observability.NewLogger(observability.ErrorLevel, io.Discard),
		CORSOrigins: []string{"*"},
	})
	return server, deps
}

func doJSON(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestRegister_Created(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.registerFn = func(_ context.Context, in users.RegisterInput) (*users.Session, error) {
		return &users.Session{
			Token: "signed-token",
			User: &store.User{
				ID: "u1", Name: in.Name, Email: "jane@example.com",
				PasswordHash: "hash", Role: auth.RoleVolunteer,
			},
		}, nil
	}

	rec := doJSON(t, server, "POST", "/api/auth/register", "", map[string]string{
		"name":     "Jane",
		"email":    "Jane@Example.com",
		"password": "secret123",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, "u1", resp.User.ID)
	// The password hash must never appear in the response.
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestRegister_ValidationError(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.registerFn = func(_ context.Context, _ users.RegisterInput) (*users.Session, error) {
		return nil, &users.ValidationError{Message: "name is required"}
	}

	rec := doJSON(t, server, "POST", "/api/auth/register", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", errorMessage(t, rec))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.registerFn = func(_ context.Context, _ users.RegisterInput) (*users.Session, error) {
		return nil, users.ErrEmailTaken
	}

	rec := doJSON(t, server, "POST", "/api/auth/register", "", map[string]string{
		"name": "Jane", "email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user already exists", errorMessage(t, rec))
}

func TestRegister_InternalErrorIsOpaque(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.registerFn = func(_ context.Context, _ users.RegisterInput) (*users.Session, error) {
		return nil, errors.New("pq: connection refused on 10.0.0.5")
	}

	rec := doJSON(t, server, "POST", "/api/auth/register", "", map[string]string{
		"name": "Jane", "email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestLogin_Success(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.loginFn = func(_ context.Context, email, password string) (*users.Session, error) {
		return &users.Session{
			Token: "signed-token",
			User:  &store.User{ID: "u1", Email: email, Role: auth.RoleVolunteer},
		}, nil
	}

	rec := doJSON(t, server, "POST", "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.loginFn = func(_ context.Context, _, _ string) (*users.Session, error) {
		return nil, users.ErrInvalidCredentials
	}

	rec := doJSON(t, server, "POST", "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorMessage(t, rec))
}

func TestLogin_MissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, "POST", "/api/auth/login", "", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile_RequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", errorMessage(t, rec))
}

func TestProfile_BadToken(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, "GET", "/api/users/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorMessage(t, rec))
}

func TestProfile_Success(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.profileFn = func(_ context.Context, userID string) (*store.User, error) {
		return &store.User{ID: userID, Name: "Jane", Email: "jane@example.com", Role: auth.RoleVolunteer}, nil
	}

	token, err := deps.issuer.Issue("u1", auth.RoleVolunteer)
	require.NoError(t, err)

	rec := doJSON(t, server, "GET", "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestUpdateProfile_PassesOnlyProvidedFields(t *testing.T) {
	server, deps := newTestServer(t)
	var gotUpd store.ProfileUpdate
	deps.users.updateProfileFn = func(_ context.Context, userID string, upd store.ProfileUpdate) (*store.User, error) {
		gotUpd = upd
		return &store.User{ID: userID, Name: "Jane", Bio: *upd.Bio}, nil
	}

	token, err := deps.issuer.Issue("u1", auth.RoleVolunteer)
	require.NoError(t, err)

	rec := doJSON(t, server, "PUT", "/api/users/profile", token, map[string]string{"bio": "I plant trees"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, gotUpd.Bio)
	assert.Equal(t, "I plant trees", *gotUpd.Bio)
	assert.Nil(t, gotUpd.Name)
	assert.Nil(t, gotUpd.Phone)
}

func TestStats_Success(t *testing.T) {
	server, deps := newTestServer(t)
	deps.users.statsFn = func(_ context.Context, _ string) (*users.Stats, error) {
		return &users.Stats{TotalHours: 12, Applications: 3}, nil
	}

	token, err := deps.issuer.Issue("u1", auth.RoleVolunteer)
	require.NoError(t, err)

	rec := doJSON(t, server, "GET", "/api/users/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats users.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 12.0, stats.TotalHours)
	assert.Equal(t, int64(3), stats.Applications)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
