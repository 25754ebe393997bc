package server

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/auth"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/datastore"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/internal/config"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/realtime"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/telemetry"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	repos    auth.Repos
	resolver *tenants.Resolver
	registry *datastore.Registry
	auth     *auth.Service
	tokens   *token.Manager
	policies *policy.Store
	hub      *realtime.Hub
	emitter  telemetry.Emitter
}

type Option func(*Server)

// WithEmitter overrides the telemetry sink, a recording fake in tests.
func WithEmitter(emitter telemetry.Emitter) Option {
	return func(s *Server) {
		s.emitter = emitter
	}
}

// WithAuthService replaces the default authentication service, used to
// inject a service with a stubbed second-factor verifier.
func WithAuthService(svc *auth.Service) Option {
	return func(s *Server) {
		s.auth = svc
	}
}

func New(cfg config.Config, repos auth.Repos, registry *datastore.Registry, tokens *token.Manager, policies *policy.Store, hub *realtime.Hub, options ...Option) (*Server, error) {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		repos:    repos,
		resolver: tenants.NewResolver(),
		registry: registry,
		tokens:   tokens,
		policies: policies,
		hub:      hub,
		emitter:  telemetry.NewLogEmitter(),
	}
	s.env = cfg.GetEnv()

	for _, opt := range options {
		opt(s)
	}

	if s.auth == nil {
		authService, err := auth.NewService(repos, tokens, policies)
		if err != nil {
			return nil, errors.Wrap(err, "[Server New] failed to create authentication service")
		}
		s.auth = authService
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	// Authentication flow
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.CoreMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthMFA, ChainMiddleware(s.MFAHandler(), s.CoreMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.CoreMiddleware(s.RequireAuth())...))

	// Security policy administration (privileged, fully authenticated)
	adminMiddleware := s.CoreMiddleware(s.RequireAuth(), s.RequireMFA(), s.RequireRole(users.RoleSuperAdmin, users.RoleOwner))
	s.RegisterRouteHandler("GET "+RouteAdminMFARoles, ChainMiddleware(s.GetMFARolesHandler(), adminMiddleware...))
	s.RegisterRouteHandler("PUT "+RouteAdminMFARoles, ChainMiddleware(s.PutMFARolesHandler(), adminMiddleware...))

	// Tenant directory administration
	s.RegisterRouteHandler("GET "+RouteAdminTenants, ChainMiddleware(s.ListTenantsHandler(), adminMiddleware...))
	s.RegisterRouteHandler("POST "+RouteAdminTenants, ChainMiddleware(s.CreateTenantHandler(), adminMiddleware...))

	// Realtime handshake authenticates via token query param; the loop
	// guard and tenant middleware stay out of the upgrade path.
	s.RegisterRouteHandler("GET "+RouteRealtime, ChainMiddleware(
		realtime.Handler(s.hub, s.tokens, s.config.GetAllowedWSOrigins()),
		s.LoggingMiddleware, s.RecoverMiddleware))

	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}

// CoreMiddleware is the chain every API route runs through, optionally
// extended with route-specific middleware.
func (s *Server) CoreMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.TenantMiddleware,
		s.LoopGuardMiddleware,
	}
	return append(chained, mw...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}
