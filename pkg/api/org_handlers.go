package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/volunteerhub/volunteerhub/pkg/httputil"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/store"
)

// OrgHandlers handles the organization directory and admin approvals
type OrgHandlers struct {
	orgs OrgService
}

// NewOrgHandlers creates a new organization handlers instance
func NewOrgHandlers(orgService OrgService) *OrgHandlers {
	return &OrgHandlers{orgs: orgService}
}

// RegisterRoutes registers the public directory routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations", h.list).Methods("GET")
	router.HandleFunc("/organizations/{id}", h.get).Methods("GET")
}

// RegisterAdminRoutes registers routes restricted to admin sessions
func (h *OrgHandlers) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/organizations", h.listAll).Methods("GET")
	router.HandleFunc("/organizations/{id}/approve", h.approve).Methods("POST")
}

// list handles GET /api/organizations
func (h *OrgHandlers) list(w http.ResponseWriter, r *http.Request) {
	city := httputil.ParseQueryString(r, "city", "")
	focusArea := httputil.ParseQueryString(r, "focus_area", "")

	orgs, err := h.orgs.List(r.Context(), city, focusArea)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("organization listing failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, orgs)
}

// get handles GET /api/organizations/{id}
func (h *OrgHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	org, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("organization lookup failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, org)
}

// listAll handles GET /api/admin/organizations, the review queue
// including unapproved organizations
func (h *OrgHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.ListAll(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("organization listing failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, orgs)
}

// approve handles POST /api/admin/organizations/{id}/approve
func (h *OrgHandlers) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.orgs.Approve(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("organization approval failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": "approved"})
}
