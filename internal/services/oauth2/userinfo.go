package oauth2

import (
	"context"
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

// UserInfo implements the OIDC userinfo endpoint. The access token must
// carry the openid scope; the remaining claims are gated by the
// profile, email, phone, and address scopes.
func (s *Service) UserInfo(ctx context.Context, accessToken string) (*oidc.UserInfo, error) {
	claims, err := s.signer.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if revoked, err := s.store.RevokedJTIs.IsRevoked(ctx, claims.ID); err != nil {
		return nil, err
	} else if revoked {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
	}
	if !hasScope(claims.Scope, oidc.ScopeOpenID) {
		return nil, apperr.E(apperr.KindForbidden, "openid scope required")
	}

	// Issued tokens are resolvable by jti; a row revocation (RFC 7009)
	// also ends userinfo access.
	if token, err := s.store.Tokens.GetByID(ctx, claims.ID); err == nil {
		if token.Revoked || token.IsExpired(time.Now()) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
		}
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	user, err := s.store.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
	}

	info := &oidc.UserInfo{Subject: user.ID}
	for _, scope := range splitScope(claims.Scope) {
		switch scope {
		case oidc.ScopeProfile:
			info.PreferredUsername = user.Username
			info.Name = user.FullName
		case oidc.ScopeEmail:
			info.Email = user.EmailOrEmpty()
		case oidc.ScopePhone:
			info.PhoneNumber = user.Phone
		}
	}
	return info, nil
}

// Discovery renders the static OpenID Provider metadata document.
func (s *Service) Discovery() *oidc.DiscoveryConfiguration {
	issuer := s.signer.Issuer()
	cfg := &oidc.DiscoveryConfiguration{
		Issuer:                 issuer,
		AuthorizationEndpoint:  issuer + "/oauth2/authorize",
		TokenEndpoint:          issuer + "/oauth2/token",
		RevocationEndpoint:     issuer + "/oauth2/revoke",
		IntrospectionEndpoint:  issuer + "/oauth2/introspect",
		UserinfoEndpoint:       issuer + "/oauth2/userinfo",
		ScopesSupported:        []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopePhone, oidc.ScopeAddress, oidc.ScopeOfflineAccess},
		ResponseTypesSupported: []string{"code"},
		GrantTypesSupported: []oidc.GrantType{
			oidc.GrantTypeCode,
			oidc.GrantTypeRefreshToken,
		},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{s.signer.Algorithm()},
		CodeChallengeMethodsSupported: []oidc.CodeChallengeMethod{
			oidc.CodeChallengeMethodPlain,
			oidc.CodeChallengeMethodS256,
		},
		TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{
			oidc.AuthMethodBasic,
			oidc.AuthMethodPost,
		},
	}
	if s.signer.Algorithm() == "RS256" {
		cfg.JwksURI = issuer + "/oauth2/.well-known/jwks.json"
	}
	return cfg
}
