package iam

import (
	"context"
	"strings"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// APIKeyAuthenticator validates opaque API keys of the form
// <decorator>-<secret>. Lookup goes through the stored 8-char prefix;
// the PBKDF2 hash is verified against every candidate so timing does not
// reveal which prefix exists.
type APIKeyAuthenticator struct {
	store *repository.Store
}

// NewAPIKeyAuthenticator builds the API key authenticator.
func NewAPIKeyAuthenticator(store *repository.Store) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store}
}

// Authenticate resolves a Bearer API key to a scoped principal.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token := req.bearerToken()
	if token == "" {
		return nil, nil
	}
	if strings.Count(token, ".") == 2 {
		// JWT shape; not ours.
		return nil, nil
	}

	_, secret, ok := auth.SplitAPIKey(token)
	if !ok {
		return nil, nil
	}

	candidates, err := a.store.APIKeys.ListByPrefix(ctx, secret[:auth.APIKeyPrefixLength])
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range candidates {
		key := &candidates[i]
		if !auth.VerifyAPIKeySecret(secret, key.Salt, key.HashedKey) {
			continue
		}
		if key.Disabled || key.IsExpired(now) {
			return nil, apperr.E(apperr.KindUnauthenticated, "invalid api key")
		}
		return &Principal{
			ID:         key.ID,
			Type:       PrincipalTypeAPIKey,
			ResourceID: key.ResourceID,
		}, nil
	}
	return nil, apperr.E(apperr.KindUnauthenticated, "invalid api key")
}
