package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/httputil"
	"github.com/volunteerhub/volunteerhub/pkg/middleware"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/users"
)

// AuthHandlers handles registration, login and logout
type AuthHandlers struct {
	users   UserService
	revoker TokenRevoker // nil when no denylist is configured
	metrics *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(userService UserService, revoker TokenRevoker, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		users:   userService,
		revoker: revoker,
		metrics: metrics,
	}
}

// RegisterRoutes registers the unauthenticated auth routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/login", h.login).Methods("POST")
}

// RegisterProtectedRoutes registers auth routes requiring a valid session
func (h *AuthHandlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/auth/logout", h.logout).Methods("POST")
}

// register handles POST /api/auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string    `json:"name"`
		Email    string    `json:"email"`
		Password string    `json:"password"`
		Role     auth.Role `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.users.Register(r.Context(), users.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteValidationError(w, verr.Message)
			return
		}
		if errors.Is(err, users.ErrEmailTaken) {
			httputil.WriteBadRequest(w, "user already exists")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("registration failed")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.RegistrationsTotal.Inc()
	}

	httputil.WriteCreated(w, AuthResponse{
		Token: session.Token,
		User:  toAuthUser(session.User),
	})
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			if h.metrics != nil {
				h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
			}
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("login failed")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}

	httputil.WriteSuccess(w, AuthResponse{
		Token: session.Token,
		User:  toAuthUser(session.User),
	})
}

// logout handles POST /api/auth/logout. With a denylist configured the
// token is revoked server side; without one the client simply discards
// it and the session lapses at expiry.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	if h.revoker != nil {
		if err := h.revoker.Revoke(r.Context(), claims); err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("token revocation failed")
			httputil.WriteInternalError(w)
			return
		}
	}

	httputil.WriteNoContent(w)
}
