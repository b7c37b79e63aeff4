package oauth2

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

// AuthorizeRequest carries the query parameters of a GET /authorize call
// plus the authenticated session user.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	// UserID is the session-authenticated user; empty means the caller
	// must log in first.
	UserID   string
	AuthTime time.Time
}

// RedirectError is a protocol error discovered after the redirect URI
// has been validated. It is delivered to the client via 302 rather than
// a JSON body.
type RedirectError struct {
	RedirectURI string
	State       string
	Code        string
	Description string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// URL renders the error redirect per RFC 6749 section 4.1.2.1.
func (e *RedirectError) URL() string {
	q := url.Values{}
	q.Set("error", e.Code)
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if e.State != "" {
		q.Set("state", e.State)
	}
	return appendQuery(e.RedirectURI, q)
}

// appendQuery adds parameters to a URI, keeping any query it already
// carries.
func appendQuery(uri string, q url.Values) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri + "?" + q.Encode()
	}
	existing := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			existing.Add(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String()
}

func redirectErr(req AuthorizeRequest, code, description string) *RedirectError {
	return &RedirectError{
		RedirectURI: req.RedirectURI,
		State:       req.State,
		Code:        code,
		Description: description,
	}
}

// Authorize validates an authorization request and mints a single-use
// code. Errors before redirect URI validation come back as apperr kinds
// (JSON 400 at the transport); later errors are *RedirectError values
// delivered on the redirect URI.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	client, err := s.store.Clients.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", apperr.E(apperr.KindInvalidClient, "unknown client")
		}
		return "", err
	}
	if client.Disabled {
		return "", apperr.E(apperr.KindInvalidClient, "client is disabled")
	}
	if err := validateRedirectURI(client, req.RedirectURI); err != nil {
		return "", err
	}

	// The redirect URI is trusted from here on; protocol errors redirect.
	if req.ResponseType != "code" {
		return "", redirectErr(req, "unsupported_response_type", "only response_type=code is supported")
	}
	if req.Scope == "" {
		return "", redirectErr(req, "invalid_request", "scope is required")
	}
	if err := s.registry.ValidateScope(req.Scope); err != nil {
		return "", redirectErr(req, "invalid_scope", apperr.Message(err))
	}
	if !scopeSubset(splitScope(req.Scope), client.AllowedScopes) {
		return "", redirectErr(req, "invalid_scope", "scope exceeds the client's grant")
	}
	if !client.AllowedGrantTypes.Contains(GrantTypeAuthorizationCode) {
		return "", redirectErr(req, "unauthorized_client", "client may not use the authorization code grant")
	}
	if req.CodeChallenge != "" {
		if req.CodeChallengeMethod == "" {
			return "", redirectErr(req, "invalid_request", "code_challenge_method is required with code_challenge")
		}
		if !auth.ValidPKCEMethod(req.CodeChallengeMethod) {
			return "", redirectErr(req, "invalid_request", "unsupported code_challenge_method")
		}
	} else if req.CodeChallengeMethod != "" {
		return "", redirectErr(req, "invalid_request", "code_challenge is required with code_challenge_method")
	}

	if req.UserID == "" {
		return "", apperr.E(apperr.KindUnauthenticated, "login required")
	}

	code, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "mint authorization code", err)
	}
	authTime := req.AuthTime
	if authTime.IsZero() {
		authTime = time.Now()
	}
	record := &models.AuthorizationCode{
		Code:                code,
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               normalizeScope(splitScope(req.Scope)),
		UserID:              req.UserID,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		AuthTime:            authTime,
		ExpiresAt:           time.Now().Add(AuthorizationCodeTTL),
	}
	if err := s.store.Codes.Create(ctx, record); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	return appendQuery(req.RedirectURI, q), nil
}

// validateRedirectURI accepts the incoming URI when its (scheme, host,
// path) tuple matches a registered URI. Registered URIs carrying query
// parameters never match.
func validateRedirectURI(client *models.OAuthClient, redirectURI string) error {
	if redirectURI == "" {
		return apperr.E(apperr.KindValidation, "redirect_uri is required")
	}
	incoming, err := url.Parse(redirectURI)
	if err != nil || !incoming.IsAbs() {
		return apperr.E(apperr.KindValidation, "invalid redirect_uri")
	}
	for _, registered := range client.RedirectURIs {
		reg, err := url.Parse(registered)
		if err != nil || reg.RawQuery != "" {
			continue
		}
		if reg.Scheme == incoming.Scheme && reg.Host == incoming.Host && reg.Path == incoming.Path {
			return nil
		}
	}
	return apperr.E(apperr.KindValidation, "redirect_uri is not registered for this client")
}
