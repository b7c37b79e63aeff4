package oauth2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

func TestRegisterClient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("confidential client gets a secret", func(t *testing.T) {
		result, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "backend-portal",
			Name:         "Backend Portal",
			ClientType:   models.ClientTypeConfidential,
			RedirectURIs: []string{"https://portal.example.com/callback"},
			Scopes:       []string{"openid", "profile"},
		})
		require.NoError(t, err)
		require.NotNil(t, result.Client.ClientSecret)
		assert.Equal(t, result.Secret, *result.Client.ClientSecret)
		assert.Equal(t, []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken}, []string(result.Client.AllowedGrantTypes))

		stored, err := f.store.Clients.GetByClientID(ctx, "backend-portal")
		require.NoError(t, err)
		assert.False(t, stored.Disabled)
	})

	t.Run("public client has no secret", func(t *testing.T) {
		result, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "native-app",
			Name:         "Native App",
			ClientType:   models.ClientTypePublic,
			RedirectURIs: []string{"http://localhost:9090/callback"},
			Scopes:       []string{"openid"},
			GrantTypes:   []string{GrantTypeAuthorizationCode},
		})
		require.NoError(t, err)
		assert.Nil(t, result.Client.ClientSecret)
		assert.Empty(t, result.Secret)
	})

	t.Run("duplicate client_id conflicts", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     f.confidential.ClientID,
			Name:         "Duplicate",
			ClientType:   models.ClientTypeConfidential,
			RedirectURIs: []string{"https://dup.example.com/cb"},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("malformed client_id rejected", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "Bad ID!",
			Name:         "Bad",
			ClientType:   models.ClientTypePublic,
			RedirectURIs: []string{"https://bad.example.com/cb"},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("auth code grant requires a redirect uri", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:   "no-redirect",
			Name:       "No Redirect",
			ClientType: models.ClientTypeConfidential,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("relative redirect uri rejected", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "bad-redirect",
			Name:         "Bad Redirect",
			ClientType:   models.ClientTypeConfidential,
			RedirectURIs: []string{"/callback"},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("public client cannot hold client_credentials", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "greedy-public",
			Name:         "Greedy",
			ClientType:   models.ClientTypePublic,
			RedirectURIs: []string{"http://localhost:1234/cb"},
			GrantTypes:   []string{GrantTypeAuthorizationCode, GrantTypeClientCredentials},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("unknown scope rejected", func(t *testing.T) {
		_, err := f.svc.RegisterClient(ctx, RegisterClientInput{
			ClientID:     "odd-scopes",
			Name:         "Odd Scopes",
			ClientType:   models.ClientTypeConfidential,
			RedirectURIs: []string{"https://odd.example.com/cb"},
			Scopes:       []string{"openid", "galactic"},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidScope))
	})
}

func TestRotateClientSecret(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result, err := f.svc.RotateClientSecret(ctx, f.confidential.ClientID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Secret)
	assert.NotEqual(t, testClientSecret, result.Secret)

	// The old secret no longer authenticates, the new one does.
	_, err = f.svc.authenticateClient(ctx, f.confidential.ClientID, testClientSecret)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidClient))
	_, err = f.svc.authenticateClient(ctx, f.confidential.ClientID, result.Secret)
	assert.NoError(t, err)

	t.Run("public client has nothing to rotate", func(t *testing.T) {
		_, err := f.svc.RotateClientSecret(ctx, f.public.ClientID)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := f.svc.RotateClientSecret(ctx, "ghost")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestSetClientDisabled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SetClientDisabled(ctx, f.confidential.ClientID, true)
	require.NoError(t, err)

	// Disabled clients fail the authorize leg outright.
	_, err = f.svc.Authorize(ctx, AuthorizeRequest{
		ClientID:     f.confidential.ClientID,
		RedirectURI:  testRedirectURI,
		ResponseType: "code",
		Scope:        "openid",
		UserID:       f.user.ID,
	})
	require.Error(t, err)

	client, err := f.svc.SetClientDisabled(ctx, f.confidential.ClientID, false)
	require.NoError(t, err)
	assert.False(t, client.Disabled)
	f.authorize(t, AuthorizeRequest{})
}
