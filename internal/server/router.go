// Package server assembles the HTTP surface: the chi router, the REST
// resource handlers, and the OAuth2/OIDC protocol endpoints.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/config"
	"github.com/opentrusty/opentrusty/internal/middleware"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	"github.com/opentrusty/opentrusty/internal/services/invite"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

// Server bundles the services the handlers dispatch into.
type Server struct {
	cfg      *config.Config
	db       *bun.DB
	store    *repository.Store
	signer   *auth.Signer
	registry *permissions.Registry

	iam     *iam.Service
	rbac    *rbac.Service
	invites *invite.Service
	oauth   *oauth2svc.Service
}

// Options carries the dependencies for router construction.
type Options struct {
	Cfg      *config.Config
	DB       *bun.DB
	Store    *repository.Store
	Signer   *auth.Signer
	Registry *permissions.Registry

	IAM         *iam.Service
	RBAC        *rbac.Service
	Invites     *invite.Service
	OAuth       *oauth2svc.Service
	Revocations cache.RevocationSet

	CORSOptions *cors.Options
}

// DefaultCORSOptions is the development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the chi router with the shared middleware stack,
// the authenticator chain, and every route group mounted.
func NewRouter(opts Options) chi.Router {
	s := &Server{
		cfg:      opts.Cfg,
		db:       opts.DB,
		store:    opts.Store,
		signer:   opts.Signer,
		registry: opts.Registry,
		iam:      opts.IAM,
		rbac:     opts.RBAC,
		invites:  opts.Invites,
		oauth:    opts.OAuth,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	r.Use(middleware.Authenticate(
		iam.NewSessionAuthenticator(opts.Signer, opts.Store),
		iam.NewJWTAuthenticator(opts.Signer, opts.Store, opts.Revocations),
		iam.NewAPIKeyAuthenticator(opts.Store),
	))

	r.Get("/health", s.handleHealth)

	r.Route("/oauth2", func(r chi.Router) {
		r.Get("/authorize", s.handleAuthorize)
		r.Post("/token", s.handleToken)
		r.Post("/revoke", s.handleRevoke)
		r.Post("/introspect", s.handleIntrospect)
		r.Get("/userinfo", s.handleUserInfo)
		r.Get("/.well-known/openid-configuration", s.handleDiscovery)
		r.Get("/.well-known/jwks.json", s.handleJWKS)
	})

	r.Post("/v1/auth/login", s.handleLogin)
	r.Post("/v1/auth/logout", s.handleLogout)

	r.Get("/verify", s.handleVerify)

	r.Get("/me", s.handleMe)
	r.Get("/me/permissions", s.handleMyPermissions)
	r.Post("/me/permissions/evaluate", s.handleEvaluate)

	r.Route("/v1/users", func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Get("/", s.handleListUsers)
		r.Get("/{id}", s.handleGetUser)
		r.Patch("/{id}", s.handleUpdateUser)
		r.Post("/{id}/disable", s.handleDisableUser)
		r.Post("/{id}/enable", s.handleEnableUser)
		r.Post("/{id}/password", s.handleChangePassword)
	})

	r.Route("/v1/organizations", func(r chi.Router) {
		r.Post("/", s.handleCreateOrganization)
		r.Get("/", s.handleListOrganizations)
		r.Get("/{id}", s.handleGetOrganization)
		r.Patch("/{id}", s.handleUpdateOrganization)
		r.Delete("/{id}", s.handleDeleteOrganization)

		r.Post("/{id}/projects", s.handleCreateProject)
		r.Get("/{id}/projects", s.handleListProjects)

		r.Get("/{id}/members", s.handleListMembers)
		r.Delete("/{id}/members/{memberID}", s.handleRemoveMember)

		r.Post("/{id}/invites", s.handleCreateInvite)
		r.Get("/{id}/invites", s.handleListInvites)
		r.Delete("/{id}/invites/{inviteID}", s.handleDeleteInvite)
	})

	r.Route("/v1/projects", func(r chi.Router) {
		r.Get("/{id}", s.handleGetProject)
		r.Patch("/{id}", s.handleUpdateProject)
		r.Delete("/{id}", s.handleDeleteProject)

		r.Get("/{id}/members", s.handleListMembers)
		r.Delete("/{id}/members/{memberID}", s.handleRemoveMember)

		r.Post("/{id}/invites", s.handleCreateInvite)
		r.Get("/{id}/invites", s.handleListInvites)
		r.Delete("/{id}/invites/{inviteID}", s.handleDeleteInvite)

		r.Post("/{id}/api-keys", s.handleCreateAPIKey)
		r.Get("/{id}/api-keys", s.handleListAPIKeys)
	})

	r.Post("/v1/invites/accept", s.handleAcceptInvite)

	r.Route("/v1/api-keys", func(r chi.Router) {
		r.Post("/{id}/rotate", s.handleRotateAPIKey)
		r.Delete("/{id}", s.handleDeleteAPIKey)
	})

	r.Route("/v1/clients", func(r chi.Router) {
		r.Post("/", s.handleCreateClient)
		r.Get("/", s.handleListClients)
		r.Get("/{clientID}", s.handleGetClient)
		r.Post("/{clientID}/rotate-secret", s.handleRotateClientSecret)
		r.Post("/{clientID}/disable", s.handleDisableClient)
		r.Post("/{clientID}/enable", s.handleEnableClient)
	})

	r.Route("/v1/roles", func(r chi.Router) {
		r.Post("/", s.handleCreateRole)
		r.Get("/", s.handleListRoles)
		r.Get("/{id}", s.handleGetRole)
		r.Patch("/{id}", s.handleUpdateRole)
		r.Delete("/{id}", s.handleDeleteRole)
	})

	r.Route("/v1/role-assignments", func(r chi.Router) {
		r.Post("/", s.handleCreateAssignment)
		r.Get("/", s.handleListAssignments)
		r.Delete("/{id}", s.handleDeleteAssignment)
	})

	return r
}
