package oauth2

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

func TestAuthorize(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		location, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.confidential.ClientID,
			RedirectURI:  testRedirectURI,
			ResponseType: "code",
			Scope:        "openid profile",
			State:        "xyzzy",
			UserID:       f.user.ID,
		})
		require.NoError(t, err)

		u, err := url.Parse(location)
		require.NoError(t, err)
		assert.Equal(t, "xyzzy", u.Query().Get("state"))

		code, err := f.store.Codes.Get(ctx, u.Query().Get("code"))
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, code.UserID)
		assert.Equal(t, "openid profile", code.Scope)
		assert.False(t, code.Used)
		assert.WithinDuration(t, time.Now().Add(AuthorizationCodeTTL), code.ExpiresAt, 5*time.Second)
	})

	t.Run("unknown client is a pre-redirect error", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:    "nobody",
			RedirectURI: testRedirectURI,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidClient))
		var re *RedirectError
		assert.False(t, errors.As(err, &re))
	})

	t.Run("unregistered redirect uri is a pre-redirect error", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:    f.confidential.ClientID,
			RedirectURI: "https://evil.example.com/callback",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("redirect uri matches on scheme host path only", func(t *testing.T) {
		// Extra query parameters on the incoming URI do not break the match.
		location, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.confidential.ClientID,
			RedirectURI:  testRedirectURI + "?flow=login",
			ResponseType: "code",
			Scope:        "openid",
			UserID:       f.user.ID,
		})
		require.NoError(t, err)
		assert.Contains(t, location, "code=")
	})

	t.Run("wrong response type redirects", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.confidential.ClientID,
			RedirectURI:  testRedirectURI,
			ResponseType: "token",
			Scope:        "openid",
			State:        "s1",
			UserID:       f.user.ID,
		})
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "unsupported_response_type", re.Code)
		assert.Contains(t, re.URL(), "state=s1")
	})

	t.Run("empty scope redirects", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.confidential.ClientID,
			RedirectURI:  testRedirectURI,
			ResponseType: "code",
			UserID:       f.user.ID,
		})
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "invalid_request", re.Code)
	})

	t.Run("scope outside client grant redirects", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.public.ClientID,
			RedirectURI:  "http://localhost:8765/callback",
			ResponseType: "code",
			Scope:        "openid email",
			UserID:       f.user.ID,
		})
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "invalid_scope", re.Code)
	})

	t.Run("challenge without method redirects", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:      f.confidential.ClientID,
			RedirectURI:   testRedirectURI,
			ResponseType:  "code",
			Scope:         "openid",
			CodeChallenge: "abc",
			UserID:        f.user.ID,
		})
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "invalid_request", re.Code)
	})

	t.Run("anonymous caller must log in", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, AuthorizeRequest{
			ClientID:     f.confidential.ClientID,
			RedirectURI:  testRedirectURI,
			ResponseType: "code",
			Scope:        "openid",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	})
}
