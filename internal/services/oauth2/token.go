package oauth2

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

// TokenRequest carries the form parameters of a POST /token call. Client
// credentials may arrive by Basic auth or form body; the transport
// normalises both into ClientID/ClientSecret.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// authorization_code grant
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token grant
	RefreshToken string
	Scope        string
}

// TokenResponse is the RFC 6749 token envelope.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Token authenticates the client and dispatches on grant_type.
func (s *Service) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowedGrantTypes.Contains(req.GrantType) {
		return nil, apperr.Ef(apperr.KindForbidden, "grant type %q is not allowed for this client", req.GrantType)
	}

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, client, req)
	case GrantTypeRefreshToken:
		return s.refresh(ctx, client, req)
	default:
		return nil, apperr.Ef(apperr.KindUnsupportedGrantType, "grant type %q is not supported", req.GrantType)
	}
}

// authenticateClient resolves the client and, for confidential clients,
// checks the presented secret in constant time.
func (s *Service) authenticateClient(ctx context.Context, clientID, clientSecret string) (*models.OAuthClient, error) {
	if clientID == "" {
		return nil, apperr.E(apperr.KindInvalidClient, "client authentication required")
	}
	client, err := s.store.Clients.GetByClientID(ctx, clientID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindInvalidClient, "invalid client credentials")
		}
		return nil, err
	}
	if client.Disabled {
		return nil, apperr.E(apperr.KindInvalidClient, "invalid client credentials")
	}
	if client.IsConfidential() {
		if client.ClientSecret == nil ||
			subtle.ConstantTimeCompare([]byte(clientSecret), []byte(*client.ClientSecret)) != 1 {
			return nil, apperr.E(apperr.KindInvalidClient, "invalid client credentials")
		}
	}
	return client, nil
}

// exchangeCode implements the authorization_code grant. Single use is
// enforced by the store's compare-and-swap; the losing side of a race
// gets invalid_grant.
func (s *Service) exchangeCode(ctx context.Context, client *models.OAuthClient, req TokenRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, apperr.E(apperr.KindInvalidRequest, "code is required")
	}
	code, err := s.store.Codes.Get(ctx, req.Code)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindInvalidGrant, "invalid authorization code")
		}
		return nil, err
	}
	if code.Used || code.IsExpired(time.Now()) {
		return nil, apperr.E(apperr.KindInvalidGrant, "invalid authorization code")
	}
	if code.ClientID != client.ClientID {
		return nil, apperr.E(apperr.KindInvalidGrant, "invalid authorization code")
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, apperr.E(apperr.KindInvalidGrant, "redirect_uri mismatch")
	}
	if code.HasPKCE() {
		if req.CodeVerifier == "" {
			return nil, apperr.E(apperr.KindInvalidRequest, "code_verifier is required")
		}
		if !auth.VerifyPKCE(req.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
			return nil, apperr.E(apperr.KindInvalidGrant, "invalid code verifier")
		}
	} else if req.CodeVerifier != "" {
		return nil, apperr.E(apperr.KindInvalidGrant, "code was issued without a challenge")
	}

	if err := s.store.Codes.Consume(ctx, code.Code); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.E(apperr.KindInvalidGrant, "authorization code already used")
		}
		return nil, err
	}

	return s.issueTokens(ctx, client, code)
}

// issueTokens mints the access JWT plus opaque refresh token, persists
// the pair, and attaches an ID token when openid was granted.
func (s *Service) issueTokens(ctx context.Context, client *models.OAuthClient, code *models.AuthorizationCode) (*TokenResponse, error) {
	now := time.Now()
	tokenID := bunx.NewUUIDv7()

	access, err := s.signer.Sign(auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.signer.Issuer(),
			Subject:   code.UserID,
			Audience:  jwt.ClaimStrings{client.ClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		Scope: code.Scope,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "sign access token", err)
	}
	refresh, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "mint refresh token", err)
	}

	record := &models.OAuth2Token{
		ID:                  tokenID,
		AccessToken:         access,
		RefreshToken:        &refresh,
		Scope:               code.Scope,
		UserID:              code.UserID,
		ClientID:            client.ClientID,
		IssuedAt:            now,
		ExpiresAt:           now.Add(s.accessTTL),
		AuthorizationCodeID: &code.Code,
	}
	if err := s.store.Tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		RefreshToken: refresh,
		Scope:        code.Scope,
	}
	if hasScope(code.Scope, "openid") {
		idToken, err := s.mintIDToken(ctx, client, code, now)
		if err != nil {
			return nil, err
		}
		resp.IDToken = idToken
	}
	return resp, nil
}

// refresh implements the refresh_token grant. The refresh token is never
// rotated; the stored row gets a fresh access token under the same jti.
func (s *Service) refresh(ctx context.Context, client *models.OAuthClient, req TokenRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, apperr.E(apperr.KindInvalidRequest, "refresh_token is required")
	}
	token, err := s.store.Tokens.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindInvalidGrant, "invalid refresh token")
		}
		return nil, err
	}
	if token.Revoked || token.ClientID != client.ClientID {
		return nil, apperr.E(apperr.KindInvalidGrant, "invalid refresh token")
	}
	if time.Now().After(token.IssuedAt.Add(s.refreshTTL)) {
		return nil, apperr.E(apperr.KindInvalidGrant, "refresh token expired")
	}

	scope := token.Scope
	if req.Scope != "" {
		if !scopeSubset(splitScope(req.Scope), splitScope(token.Scope)) {
			return nil, apperr.E(apperr.KindInvalidScope, "requested scope exceeds the original grant")
		}
		scope = normalizeScope(splitScope(req.Scope))
	}

	now := time.Now()
	access, err := s.signer.Sign(auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.signer.Issuer(),
			Subject:   token.UserID,
			Audience:  jwt.ClaimStrings{client.ClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        token.ID,
		},
		Scope: scope,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "sign access token", err)
	}
	if err := s.store.Tokens.UpdateAccessToken(ctx, token.ID, access, now.Add(s.accessTTL)); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		RefreshToken: req.RefreshToken,
		Scope:        scope,
	}, nil
}

// mintIDToken builds the OIDC ID token with scope-gated profile claims.
func (s *Service) mintIDToken(ctx context.Context, client *models.OAuthClient, code *models.AuthorizationCode, now time.Time) (string, error) {
	user, err := s.store.Users.GetByID(ctx, code.UserID)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"iss":       s.signer.Issuer(),
		"sub":       user.ID,
		"aud":       client.ClientID,
		"azp":       client.ClientID,
		"exp":       now.Add(s.accessTTL).Unix(),
		"iat":       now.Unix(),
		"auth_time": code.AuthTime.Unix(),
	}
	if code.Nonce != "" {
		claims["nonce"] = code.Nonce
	}
	if hasScope(code.Scope, "profile") {
		claims["preferred_username"] = user.Username
		if user.FullName != "" {
			claims["name"] = user.FullName
		}
	}
	if hasScope(code.Scope, "email") && user.Email != nil {
		claims["email"] = *user.Email
	}
	if hasScope(code.Scope, "phone") && user.Phone != "" {
		claims["phone_number"] = user.Phone
	}

	idToken, err := s.signer.Sign(claims)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "sign id token", err)
	}
	return idToken, nil
}
