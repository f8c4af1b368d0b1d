package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/volunteerhub/volunteerhub/pkg/httputil"
	"github.com/volunteerhub/volunteerhub/pkg/middleware"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/opps"
	"github.com/volunteerhub/volunteerhub/pkg/store"
)

// OppHandlers handles opportunity listings and volunteer applications
type OppHandlers struct {
	opps    OppService
	metrics *observability.Metrics
}

// NewOppHandlers creates a new opportunity handlers instance
func NewOppHandlers(oppService OppService, metrics *observability.Metrics) *OppHandlers {
	return &OppHandlers{opps: oppService, metrics: metrics}
}

// RegisterRoutes registers the public listing routes
func (h *OppHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/opportunities", h.list).Methods("GET")
	router.HandleFunc("/opportunities/{id}", h.get).Methods("GET")
}

// RegisterVolunteerRoutes registers routes restricted to volunteer sessions
func (h *OppHandlers) RegisterVolunteerRoutes(router *mux.Router) {
	router.HandleFunc("/opportunities/{id}/apply", h.apply).Methods("POST")
	router.HandleFunc("/applications", h.listApplications).Methods("GET")
}

// list handles GET /api/opportunities
func (h *OppHandlers) list(w http.ResponseWriter, r *http.Request) {
	category := httputil.ParseQueryString(r, "category", "")
	city := httputil.ParseQueryString(r, "city", "")

	listing, err := h.opps.List(r.Context(), category, city)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("opportunity listing failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, listing)
}

// get handles GET /api/opportunities/{id}
func (h *OppHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	opp, err := h.opps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "opportunity not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("opportunity lookup failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, opp)
}

// apply handles POST /api/opportunities/{id}/apply
func (h *OppHandlers) apply(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(r)

	app, err := h.opps.Apply(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, opps.ErrOpportunityNotFound) {
			httputil.WriteNotFoundError(w, "opportunity not found")
			return
		}
		if errors.Is(err, opps.ErrAlreadyApplied) {
			httputil.WriteBadRequest(w, "already applied to this opportunity")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("application failed")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.ApplicationsTotal.Inc()
	}

	httputil.WriteCreated(w, app)
}

// listApplications handles GET /api/applications
func (h *OppHandlers) listApplications(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	apps, err := h.opps.Applications(r.Context(), claims.UserID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("application listing failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, apps)
}
