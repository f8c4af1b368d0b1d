package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/httputil"
	"github.com/volunteerhub/volunteerhub/pkg/middleware"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
)

// Options carries the dependencies of the API server
type Options struct {
	Users   UserService
	Orgs    OrgService
	Opps    OppService
	Revoker TokenRevoker // optional

	Verifier middleware.TokenVerifier
	Denylist middleware.RevocationChecker // optional

	Logger  *observability.Logger
	Metrics *observability.Metrics // optional

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server is the HTTP API. All routes live under /api; everything past
// the auth middleware requires a valid session token.
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer assembles the router and middleware chain
func NewServer(opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: opts.Logger,
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(observability.RecoveryMiddleware(opts.Logger))
	s.router.Use(observability.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		s.router.Use(opts.Metrics.HTTPMiddleware)
	}
	s.router.Use(httputil.CORSMiddleware(opts.CORSOrigins))
	if opts.MaxBodyBytes > 0 {
		s.router.Use(httputil.MaxBytesMiddleware(opts.MaxBodyBytes))
	}

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, map[string]string{"status": "ok"})
	}).Methods("GET")

	authHandlers := NewAuthHandlers(opts.Users, opts.Revoker, opts.Metrics)
	userHandlers := NewUserHandlers(opts.Users)
	orgHandlers := NewOrgHandlers(opts.Orgs)
	oppHandlers := NewOppHandlers(opts.Opps, opts.Metrics)

	apiRouter := s.router.PathPrefix("/api").Subrouter()

	// Public routes: registration, login and the browse surfaces.
	authHandlers.RegisterRoutes(apiRouter)
	orgHandlers.RegisterRoutes(apiRouter)
	oppHandlers.RegisterRoutes(apiRouter)

	// Authenticated routes.
	authMW := middleware.NewAuthMiddleware(opts.Verifier, opts.Denylist)
	if opts.Metrics != nil {
		authMW.WithMetrics(opts.Metrics)
	}
	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(authMW.Handler)
	authHandlers.RegisterProtectedRoutes(protected)
	userHandlers.RegisterRoutes(protected)

	// Applying is a volunteer action; organization and admin sessions
	// browse but cannot apply.
	volunteer := protected.NewRoute().Subrouter()
	volunteer.Use(middleware.RequireRole(auth.RoleVolunteer))
	oppHandlers.RegisterVolunteerRoutes(volunteer)

	// Admin routes.
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	orgHandlers.RegisterAdminRoutes(admin)

	return s
}

// Handler returns the assembled HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
