package oauth2

import (
	"context"
	"log"
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

// RevokeRequest carries a POST /revoke call.
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

// Revoke implements RFC 7009. Revoking an unknown or already revoked
// token succeeds silently; only client authentication failures surface.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest) error {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return err
	}

	token, err := s.lookupToken(ctx, req.Token, req.TokenTypeHint)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if token.ClientID != client.ClientID {
		return apperr.E(apperr.KindInvalidClient, "token belongs to another client")
	}
	if err := s.store.Tokens.Revoke(ctx, token.ID); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	// Blacklist the jti so already-issued access JWTs stop resolving
	// before their exp.
	if remaining := time.Until(token.ExpiresAt); remaining > 0 {
		entry := &models.RevokedJTI{
			JTI:       token.ID,
			Subject:   token.UserID,
			Exp:       token.ExpiresAt,
			RevokedAt: time.Now(),
		}
		if err := s.store.RevokedJTIs.Revoke(ctx, entry); err != nil {
			return err
		}
		if err := s.revocations.Revoke(ctx, token.ID, remaining); err != nil {
			log.Printf("revocation cache write failed: %v", err)
		}
	}
	return nil
}

// IntrospectRequest carries a POST /introspect call.
type IntrospectRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

// Introspect implements RFC 7662. Unknown, expired, and revoked tokens
// all collapse to {active: false}.
func (s *Service) Introspect(ctx context.Context, req IntrospectRequest) (*oidc.IntrospectionResponse, error) {
	if _, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}

	inactive := &oidc.IntrospectionResponse{Active: false}
	token, err := s.lookupToken(ctx, req.Token, req.TokenTypeHint)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return inactive, nil
		}
		return nil, err
	}
	if token.Revoked || token.IsExpired(time.Now()) {
		return inactive, nil
	}

	return &oidc.IntrospectionResponse{
		Active:     true,
		Scope:      oidc.SpaceDelimitedArray(splitScope(token.Scope)),
		ClientID:   token.ClientID,
		TokenType:  "Bearer",
		Expiration: oidc.FromTime(token.ExpiresAt),
		IssuedAt:   oidc.FromTime(token.IssuedAt),
		Subject:    token.UserID,
		Audience:   oidc.Audience{token.ClientID},
		Issuer:     s.signer.Issuer(),
		JWTID:      token.ID,
	}, nil
}

// lookupToken resolves a token string by the hinted column first, then
// the other.
func (s *Service) lookupToken(ctx context.Context, token, hint string) (*models.OAuth2Token, error) {
	if token == "" {
		return nil, apperr.E(apperr.KindNotFound, "token not found")
	}
	if hint == "refresh_token" {
		if t, err := s.store.Tokens.GetByRefreshToken(ctx, token); err == nil {
			return t, nil
		} else if !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		return s.store.Tokens.GetByAccessToken(ctx, token)
	}
	if t, err := s.store.Tokens.GetByAccessToken(ctx, token); err == nil {
		return t, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	return s.store.Tokens.GetByRefreshToken(ctx, token)
}
