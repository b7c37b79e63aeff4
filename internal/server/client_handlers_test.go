package server

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEndpoints(t *testing.T) {
	f := setup(t)
	adminLogin, _ := f.login(t, "rootadmin", testAdminPassword)
	userLogin, _ := f.login(t, "plainuser", testUserPassword)

	newClient := func(id string) map[string]any {
		return map[string]any{
			"client_id":     id,
			"name":          "Partner Portal",
			"client_type":   "confidential",
			"redirect_uris": []string{"https://partner.example.com/callback"},
			"scopes":        []string{"openid", "profile"},
		}
	}

	var secret string

	t.Run("admin registers a confidential client", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/clients", newClient("partner-portal"), asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusCreated, rec.Code)
		var created struct {
			ClientID string `json:"client_id"`
			Secret   string `json:"secret"`
		}
		decode(t, rec, &created)
		assert.Equal(t, "partner-portal", created.ClientID)
		require.NotEmpty(t, created.Secret)
		secret = created.Secret
	})

	t.Run("registration is platform gated", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/clients", newClient("sneaky"), asBearer(userLogin.AccessToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("get omits the secret", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/clients/partner-portal", nil, asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), secret)
		assert.NotContains(t, rec.Body.String(), "client_secret")
	})

	t.Run("list is paginated", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := f.do(t, http.MethodPost, "/v1/clients", newClient(fmt.Sprintf("bulk-%d", i)), asBearer(adminLogin.AccessToken))
			require.Equal(t, http.StatusCreated, rec.Code)
		}
		rec := f.do(t, http.MethodGet, "/v1/clients?limit=2", nil, asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Data    []struct{ ClientID string } `json:"data"`
			HasMore bool                        `json:"has_more"`
		}
		decode(t, rec, &page)
		assert.Len(t, page.Data, 2)
		assert.True(t, page.HasMore)
	})

	t.Run("invalid registration is rejected", func(t *testing.T) {
		bad := newClient("no-redirects")
		bad["redirect_uris"] = []string{}
		rec := f.do(t, http.MethodPost, "/v1/clients", bad, asBearer(adminLogin.AccessToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rotate secret returns a fresh one", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/clients/partner-portal/rotate-secret", nil, asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var rotated struct {
			Secret string `json:"secret"`
		}
		decode(t, rec, &rotated)
		require.NotEmpty(t, rotated.Secret)
		assert.NotEqual(t, secret, rotated.Secret)
	})

	t.Run("disable shuts the token endpoint", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/clients/partner-portal/disable", nil, asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)

		form := formBody(url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {"partner-portal"},
			"client_secret": {secret},
		})
		tok := f.do(t, http.MethodPost, "/oauth2/token", form, asForm)
		assert.Equal(t, http.StatusUnauthorized, tok.Code)
		assert.Contains(t, tok.Body.String(), "invalid_client")
	})

	t.Run("enable restores the client", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/clients/partner-portal/enable", nil, asBearer(adminLogin.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"disabled":false`)
	})

	t.Run("unknown client is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/clients/ghost", nil, asBearer(adminLogin.AccessToken))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
