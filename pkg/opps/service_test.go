package opps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volunteerhub/volunteerhub/pkg/store"
)

type fakeOppStore struct {
	opps map[string]*store.Opportunity
}

func (f *fakeOppStore) CreateOpportunity(_ context.Context, opp *store.Opportunity) error {
	f.opps[opp.ID] = opp
	return nil
}

func (f *fakeOppStore) GetOpportunity(_ context.Context, id string) (*store.Opportunity, error) {
	opp, ok := f.opps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return opp, nil
}

func (f *fakeOppStore) ListOpportunities(_ context.Context, filter store.OpportunityFilter) ([]*store.Opportunity, error) {
	out := []*store.Opportunity{}
	for _, opp := range f.opps {
		if filter.Category != "" && opp.Category != filter.Category {
			continue
		}
		if filter.City != "" && opp.Location != filter.City {
			continue
		}
		out = append(out, opp)
	}
	return out, nil
}

func (f *fakeOppStore) CountOpportunities(_ context.Context) (int64, error) {
	return int64(len(f.opps)), nil
}

type fakeAppStore struct {
	apps map[string]*store.Application // keyed by oppID+volunteerID
}

func (f *fakeAppStore) CreateApplication(_ context.Context, app *store.Application) error {
	key := app.OppID + "/" + app.VolunteerID
	if _, exists := f.apps[key]; exists {
		return store.ErrDuplicateApplication
	}
	app.Status = store.ApplicationPending
	app.AppliedAt = time.Now().UTC()
	f.apps[key] = app
	return nil
}

func (f *fakeAppStore) ListApplicationsByVolunteer(_ context.Context, volunteerID string) ([]*store.Application, error) {
	out := []*store.Application{}
	for _, app := range f.apps {
		if app.VolunteerID == volunteerID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeAppStore) CountApplicationsByVolunteer(_ context.Context, volunteerID string) (int64, error) {
	apps, _ := f.ListApplicationsByVolunteer(context.Background(), volunteerID)
	return int64(len(apps)), nil
}

func newTestService() (*Service, *fakeOppStore, *fakeAppStore) {
	opps := &fakeOppStore{opps: make(map[string]*store.Opportunity)}
	apps := &fakeAppStore{apps: make(map[string]*store.Application)}
	return NewService(opps, apps), opps, apps
}

func TestList_Filters(t *testing.T) {
	svc, oppStore, _ := newTestService()
	oppStore.opps["opp1"] = &store.Opportunity{ID: "opp1", Category: "environment", Location: "Pune"}
	oppStore.opps["opp2"] = &store.Opportunity{ID: "opp2", Category: "education", Location: "Mumbai"}

	got, err := svc.List(context.Background(), "environment", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "opp1", got[0].ID)

	got, err = svc.List(context.Background(), "", "Mumbai")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "opp2", got[0].ID)
}

func TestApply_Success(t *testing.T) {
	svc, oppStore, _ := newTestService()
	oppStore.opps["opp1"] = &store.Opportunity{ID: "opp1", Title: "Tree Plantation"}

	app, err := svc.Apply(context.Background(), "opp1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "opp1", app.OppID)
	assert.Equal(t, "u1", app.VolunteerID)
	assert.Equal(t, store.ApplicationPending, app.Status)
}

func TestApply_Duplicate(t *testing.T) {
	svc, oppStore, _ := newTestService()
	oppStore.opps["opp1"] = &store.Opportunity{ID: "opp1"}

	_, err := svc.Apply(context.Background(), "opp1", "u1")
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), "opp1", "u1")
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApply_UnknownOpportunity(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Apply(context.Background(), "ghost", "u1")
	assert.ErrorIs(t, err, ErrOpportunityNotFound)
}

func TestApplications_ScopedToVolunteer(t *testing.T) {
	svc, oppStore, _ := newTestService()
	oppStore.opps["opp1"] = &store.Opportunity{ID: "opp1"}
	oppStore.opps["opp2"] = &store.Opportunity{ID: "opp2"}

	_, err := svc.Apply(context.Background(), "opp1", "u1")
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), "opp2", "u1")
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), "opp1", "u2")
	require.NoError(t, err)

	apps, err := svc.Applications(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}
