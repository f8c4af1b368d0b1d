// Package opps exposes opportunity listings and the volunteer
// application flow.
package opps

import (
	"context"
	"errors"
	"fmt"

	"github.com/volunteerhub/volunteerhub/pkg/store"
)

var (
	// ErrAlreadyApplied is returned when a volunteer applies twice to
	// the same opportunity
	ErrAlreadyApplied = errors.New("already applied to this opportunity")
	// ErrOpportunityNotFound is returned when applying to an
	// opportunity that does not exist
	ErrOpportunityNotFound = errors.New("opportunity not found")
)

// Service implements opportunity operations
type Service struct {
	opps store.OpportunityStore
	apps store.ApplicationStore
}

// NewService creates an opportunity service
func NewService(opps store.OpportunityStore, apps store.ApplicationStore) *Service {
	return &Service{opps: opps, apps: apps}
}

// List returns opportunities, optionally filtered by category and city.
// Each result carries the publishing organization's name and logo.
func (s *Service) List(ctx context.Context, category, city string) ([]*store.Opportunity, error) {
	return s.opps.ListOpportunities(ctx, store.OpportunityFilter{
		Category: category,
		City:     city,
	})
}

// Get returns a single opportunity by ID
func (s *Service) Get(ctx context.Context, id string) (*store.Opportunity, error) {
	return s.opps.GetOpportunity(ctx, id)
}

// Apply records a volunteer's application. At most one application per
// (opportunity, volunteer) pair exists; the storage layer enforces this
// with a unique index, so concurrent duplicate submissions cannot both
// succeed.
func (s *Service) Apply(ctx context.Context, oppID, volunteerID string) (*store.Application, error) {
	if _, err := s.opps.GetOpportunity(ctx, oppID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOpportunityNotFound
		}
		return nil, fmt.Errorf("failed to look up opportunity: %w", err)
	}

	app := &store.Application{
		OppID:       oppID,
		VolunteerID: volunteerID,
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, store.ErrDuplicateApplication) {
			return nil, ErrAlreadyApplied
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// Applications returns the volunteer's applications, most recent first
func (s *Service) Applications(ctx context.Context, volunteerID string) ([]*store.Application, error) {
	return s.apps.ListApplicationsByVolunteer(ctx, volunteerID)
}
