// Package orgs exposes the public organization directory and the admin
// approval flow.
package orgs

import (
	"context"

	"github.com/volunteerhub/volunteerhub/pkg/store"
)

// Service implements organization operations
type Service struct {
	orgs store.OrganizationStore
}

// NewService creates an organization service
func NewService(orgs store.OrganizationStore) *Service {
	return &Service{orgs: orgs}
}

// List returns approved organizations, optionally filtered by city and
// focus area. Unapproved organizations never appear in public listings.
func (s *Service) List(ctx context.Context, city, focusArea string) ([]*store.Organization, error) {
	return s.orgs.ListOrganizations(ctx, store.OrganizationFilter{
		City:      city,
		FocusArea: focusArea,
	})
}

// ListAll returns every organization including unapproved ones.
// Admin review queues use this.
func (s *Service) ListAll(ctx context.Context) ([]*store.Organization, error) {
	return s.orgs.ListOrganizations(ctx, store.OrganizationFilter{IncludeUnapproved: true})
}

// Get returns a single organization by ID
func (s *Service) Get(ctx context.Context, id string) (*store.Organization, error) {
	return s.orgs.GetOrganization(ctx, id)
}

// Approve marks an organization as approved, making it publicly visible
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.orgs.ApproveOrganization(ctx, id)
}
