package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
)

// handleAuthorize starts the authorization code flow. Protocol errors
// discovered after redirect URI validation go back to the client on the
// redirect URI; earlier failures render as JSON so a misregistered URI
// never receives tokens or error codes.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := oauth2svc.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}
	if p := iam.PrincipalFromContext(r.Context()); p != nil && !p.IsAPIKey() {
		req.UserID = p.ID
	}

	location, err := s.oauth.Authorize(r.Context(), req)
	if err != nil {
		var re *oauth2svc.RedirectError
		if errors.As(err, &re) {
			http.Redirect(w, r, re.URL(), http.StatusFound)
			return
		}
		writeOAuthError(w, err)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// clientCredentials pulls client_id and client_secret from the form
// body, falling back to HTTP Basic per RFC 6749 section 2.3.1.
func clientCredentials(r *http.Request) (string, string) {
	clientID := r.PostFormValue("client_id")
	clientSecret := r.PostFormValue("client_secret")
	if clientID == "" {
		if id, secret, ok := r.BasicAuth(); ok {
			clientID, clientSecret = id, secret
		}
	}
	return clientID, clientSecret
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, apperr.Wrap(apperr.KindInvalidRequest, "malformed form body", err))
		return
	}
	clientID, clientSecret := clientCredentials(r)
	resp, err := s.oauth.Token(r.Context(), oauth2svc.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RefreshToken: r.PostFormValue("refresh_token"),
		Scope:        r.PostFormValue("scope"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	respond(w, http.StatusOK, resp)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, apperr.Wrap(apperr.KindInvalidRequest, "malformed form body", err))
		return
	}
	clientID, clientSecret := clientCredentials(r)
	err := s.oauth.Revoke(r.Context(), oauth2svc.RevokeRequest{
		Token:         r.PostFormValue("token"),
		TokenTypeHint: r.PostFormValue("token_type_hint"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, apperr.Wrap(apperr.KindInvalidRequest, "malformed form body", err))
		return
	}
	clientID, clientSecret := clientCredentials(r)
	resp, err := s.oauth.Introspect(r.Context(), oauth2svc.IntrospectRequest{
		Token:         r.PostFormValue("token"),
		TokenTypeHint: r.PostFormValue("token_type_hint"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="userinfo"`)
		writeOAuthError(w, apperr.E(apperr.KindUnauthenticated, "bearer token required"))
		return
	}
	info, err := s.oauth.UserInfo(r.Context(), token)
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.oauth.Discovery())
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.signer.JWKS())
}
