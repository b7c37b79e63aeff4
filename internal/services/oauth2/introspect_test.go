package oauth2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

func (f *fixture) issueTokenPair(t *testing.T, scope string) *TokenResponse {
	t.Helper()
	code := f.authorize(t, AuthorizeRequest{Scope: scope})
	resp, err := f.svc.Token(context.Background(), confidentialTokenRequest(TokenRequest{Code: code}))
	require.NoError(t, err)
	return resp
}

func clientAuth(req IntrospectRequest) IntrospectRequest {
	req.ClientID = "web-console"
	req.ClientSecret = testClientSecret
	return req
}

func TestIntrospect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("active access token", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid profile")

		resp, err := f.svc.Introspect(ctx, clientAuth(IntrospectRequest{Token: issued.AccessToken}))
		require.NoError(t, err)
		assert.True(t, resp.Active)
		assert.Equal(t, f.user.ID, resp.Subject)
		assert.Equal(t, "web-console", resp.ClientID)
		assert.Equal(t, testIssuer, resp.Issuer)
		assert.ElementsMatch(t, []string{"openid", "profile"}, []string(resp.Scope))
		assert.NotEmpty(t, resp.JWTID)
	})

	t.Run("refresh token with hint", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		resp, err := f.svc.Introspect(ctx, clientAuth(IntrospectRequest{
			Token:         issued.RefreshToken,
			TokenTypeHint: "refresh_token",
		}))
		require.NoError(t, err)
		assert.True(t, resp.Active)
	})

	t.Run("unknown token is inactive", func(t *testing.T) {
		resp, err := f.svc.Introspect(ctx, clientAuth(IntrospectRequest{Token: "bogus"}))
		require.NoError(t, err)
		assert.False(t, resp.Active)
	})

	t.Run("revoked token is inactive", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		require.NoError(t, f.svc.Revoke(ctx, RevokeRequest{
			Token:        issued.AccessToken,
			ClientID:     "web-console",
			ClientSecret: testClientSecret,
		}))

		resp, err := f.svc.Introspect(ctx, clientAuth(IntrospectRequest{Token: issued.AccessToken}))
		require.NoError(t, err)
		assert.False(t, resp.Active)
	})

	t.Run("unauthenticated client", func(t *testing.T) {
		_, err := f.svc.Introspect(ctx, IntrospectRequest{
			Token:        "anything",
			ClientID:     "web-console",
			ClientSecret: "wrong",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidClient))
	})
}

func TestRevoke(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("by refresh token", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		require.NoError(t, f.svc.Revoke(ctx, RevokeRequest{
			Token:         issued.RefreshToken,
			TokenTypeHint: "refresh_token",
			ClientID:      "web-console",
			ClientSecret:  testClientSecret,
		}))

		// The whole pair dies with the row.
		_, err := f.svc.Token(ctx, confidentialTokenRequest(TokenRequest{
			GrantType:    GrantTypeRefreshToken,
			RefreshToken: issued.RefreshToken,
		}))
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidGrant))

		claims, err := f.signer.Verify(issued.AccessToken)
		require.NoError(t, err)
		revoked, err := f.store.RevokedJTIs.IsRevoked(ctx, claims.ID)
		require.NoError(t, err)
		assert.True(t, revoked, "revocation must blacklist the access token jti")
	})

	t.Run("unknown token succeeds", func(t *testing.T) {
		assert.NoError(t, f.svc.Revoke(ctx, RevokeRequest{
			Token:        "bogus",
			ClientID:     "web-console",
			ClientSecret: testClientSecret,
		}))
	})

	t.Run("another client's token", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		err := f.svc.Revoke(ctx, RevokeRequest{
			Token:    issued.AccessToken,
			ClientID: "cli",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidClient))
	})

	t.Run("revoking twice is idempotent", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		req := RevokeRequest{
			Token:        issued.AccessToken,
			ClientID:     "web-console",
			ClientSecret: testClientSecret,
		}
		require.NoError(t, f.svc.Revoke(ctx, req))
		assert.NoError(t, f.svc.Revoke(ctx, req))
	})
}

func TestUserInfo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("claims gated by scope", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid profile")

		info, err := f.svc.UserInfo(ctx, issued.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, info.Subject)
		assert.Equal(t, "authcodeuser", info.PreferredUsername)
		assert.Equal(t, "Auth Code User", info.Name)
		assert.Empty(t, info.Email, "email claim requires the email scope")
	})

	t.Run("email scope", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid email")
		info, err := f.svc.UserInfo(ctx, issued.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", info.Email)
		assert.Empty(t, info.PreferredUsername)
	})

	t.Run("missing openid scope", func(t *testing.T) {
		issued := f.issueTokenPair(t, "profile")
		_, err := f.svc.UserInfo(ctx, issued.AccessToken)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("revoked token", func(t *testing.T) {
		issued := f.issueTokenPair(t, "openid")
		require.NoError(t, f.svc.Revoke(ctx, RevokeRequest{
			Token:        issued.AccessToken,
			ClientID:     "web-console",
			ClientSecret: testClientSecret,
		}))
		_, err := f.svc.UserInfo(ctx, issued.AccessToken)
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.UserInfo(ctx, "not-a-jwt")
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	})
}

func TestDiscovery(t *testing.T) {
	f := setup(t)

	cfg := f.svc.Discovery()
	assert.Equal(t, testIssuer, cfg.Issuer)
	assert.Equal(t, testIssuer+"/oauth2/authorize", cfg.AuthorizationEndpoint)
	assert.Equal(t, testIssuer+"/oauth2/token", cfg.TokenEndpoint)
	assert.Contains(t, cfg.GrantTypesSupported, oidc.GrantTypeRefreshToken)
	assert.Equal(t, []string{"code"}, cfg.ResponseTypesSupported)
	assert.Equal(t, []oidc.AuthMethod{oidc.AuthMethodBasic, oidc.AuthMethodPost}, cfg.TokenEndpointAuthMethodsSupported)
	assert.Empty(t, cfg.JwksURI, "HS256 deployments advertise no JWKS")
}
