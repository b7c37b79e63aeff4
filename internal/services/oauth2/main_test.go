package oauth2

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/config"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

const (
	testIssuer       = "https://iam.test"
	testClientSecret = "confidential-secret"
	testRedirectURI  = "https://app.example.com/callback"
)

type fixture struct {
	svc    *Service
	store  *repository.Store
	signer *auth.Signer

	user         *models.User
	confidential *models.OAuthClient
	public       *models.OAuthClient
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	signer, err := auth.NewSigner(config.JWTConfig{
		Algorithm: "HS256",
		SecretKey: "oauth2-test-secret",
	}, testIssuer)
	require.NoError(t, err)

	revocations, err := cache.NewRevocationSet("")
	require.NoError(t, err)
	t.Cleanup(func() { revocations.Close() })

	store := repository.NewStore(db)
	f := &fixture{
		svc:    NewService(store, signer, permissions.MustLoad(), revocations, 15*time.Minute, 7*24*time.Hour),
		store:  store,
		signer: signer,
	}

	email := "user@example.com"
	f.user = &models.User{
		ID:             bunx.NewUUIDv7(),
		Username:       "authcodeuser",
		Email:          &email,
		FullName:       "Auth Code User",
		HashedPassword: "$2a$10$notarealhash",
	}
	require.NoError(t, store.Users.Create(ctx, f.user))

	secret := testClientSecret
	f.confidential = &models.OAuthClient{
		ID:                bunx.NewUUIDv7(),
		ClientID:          "web-console",
		ClientSecret:      &secret,
		ClientType:        models.ClientTypeConfidential,
		Name:              "Web Console",
		RedirectURIs:      models.StringSlice{testRedirectURI},
		AllowedScopes:     models.StringSlice{"openid", "profile", "email", "offline_access"},
		AllowedGrantTypes: models.StringSlice{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
	}
	require.NoError(t, store.Clients.Create(ctx, f.confidential))

	f.public = &models.OAuthClient{
		ID:                bunx.NewUUIDv7(),
		ClientID:          "cli",
		ClientType:        models.ClientTypePublic,
		Name:              "CLI",
		RedirectURIs:      models.StringSlice{"http://localhost:8765/callback"},
		AllowedScopes:     models.StringSlice{"openid", "profile"},
		AllowedGrantTypes: models.StringSlice{GrantTypeAuthorizationCode},
	}
	require.NoError(t, store.Clients.Create(ctx, f.public))

	return f
}

// authorize runs a happy-path authorize call and extracts the code.
func (f *fixture) authorize(t *testing.T, req AuthorizeRequest) string {
	t.Helper()
	if req.ClientID == "" {
		req.ClientID = f.confidential.ClientID
	}
	if req.RedirectURI == "" {
		req.RedirectURI = testRedirectURI
	}
	if req.ResponseType == "" {
		req.ResponseType = "code"
	}
	if req.Scope == "" {
		req.Scope = "openid profile email"
	}
	if req.UserID == "" {
		req.UserID = f.user.ID
	}
	location, err := f.svc.Authorize(context.Background(), req)
	require.NoError(t, err)
	return codeFromLocation(t, location)
}

// codeFromLocation parses the code parameter out of a redirect URL.
func codeFromLocation(t *testing.T, location string) string {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}
