package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/volunteerhub/volunteerhub/pkg/httputil"
	"github.com/volunteerhub/volunteerhub/pkg/middleware"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/store"
	"github.com/volunteerhub/volunteerhub/pkg/users"
)

// UserHandlers handles profile and statistics requests for the
// authenticated account
type UserHandlers struct {
	users UserService
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(userService UserService) *UserHandlers {
	return &UserHandlers{users: userService}
}

// RegisterRoutes registers user routes on an authenticated router
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/profile", h.getProfile).Methods("GET")
	router.HandleFunc("/users/profile", h.updateProfile).Methods("PUT")
	router.HandleFunc("/users/stats", h.getStats).Methods("GET")
}

// getProfile handles GET /api/users/profile
func (h *UserHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	user, err := h.users.Profile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("profile lookup failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, user)
}

// updateProfile handles PUT /api/users/profile. Only fields present in
// the request body are written; omitted fields keep their values.
func (h *UserHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	var req struct {
		Name      *string `json:"name"`
		Phone     *string `json:"phone"`
		Bio       *string `json:"bio"`
		Interests *string `json:"interests"`
		Skills    *string `json:"skills"`
		AvatarURL *string `json:"avatar_url"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), claims.UserID, store.ProfileUpdate{
		Name:      req.Name,
		Phone:     req.Phone,
		Bio:       req.Bio,
		Interests: req.Interests,
		Skills:    req.Skills,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteValidationError(w, verr.Message)
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("profile update failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, user)
}

// getStats handles GET /api/users/stats
func (h *UserHandlers) getStats(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	stats, err := h.users.Stats(r.Context(), claims.UserID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("stats computation failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, stats)
}
