package iam

import (
	"context"
	"log"
	"strings"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// JWTAuthenticator validates Bearer JWTs minted by this service. Tokens
// whose jti is blacklisted (logout, revocation) are rejected even while
// cryptographically valid.
type JWTAuthenticator struct {
	signer      *auth.Signer
	store       *repository.Store
	revocations cache.RevocationSet
}

// NewJWTAuthenticator builds the JWT authenticator.
func NewJWTAuthenticator(signer *auth.Signer, store *repository.Store, revocations cache.RevocationSet) *JWTAuthenticator {
	return &JWTAuthenticator{signer: signer, store: store, revocations: revocations}
}

// Authenticate resolves a Bearer JWT to a user principal.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token := req.bearerToken()
	if token == "" {
		return nil, nil
	}
	// Compact JWTs have exactly three dot-separated segments; anything
	// else belongs to the API key authenticator.
	if strings.Count(token, ".") != 2 {
		return nil, nil
	}

	claims, err := a.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := a.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
	}

	user, err := a.store.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid token")
	}

	return &Principal{
		ID:       user.ID,
		Type:     PrincipalTypeUser,
		Username: user.Username,
		Email:    user.EmailOrEmpty(),
		Scope:    claims.Scope,
		TokenID:  claims.ID,
	}, nil
}

// isRevoked consults the fast cache first, then the durable blacklist.
// A cache outage falls through to the store rather than failing open.
func (a *JWTAuthenticator) isRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	revoked, err := a.revocations.IsRevoked(ctx, jti)
	if err == nil && revoked {
		return true, nil
	}
	if err != nil {
		log.Printf("revocation cache lookup failed, falling back to store: %v", err)
	}
	return a.store.RevokedJTIs.IsRevoked(ctx, jti)
}
