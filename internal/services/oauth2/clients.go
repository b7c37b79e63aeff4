package oauth2

import (
	"context"
	"net/url"
	"regexp"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

var clientIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

// RegisterClientInput describes a client registration performed by a
// platform administrator. Clients are immutable after creation except
// for disabling and secret rotation, so everything is bound here.
type RegisterClientInput struct {
	ClientID     string
	Name         string
	ClientType   string
	RedirectURIs []string
	Scopes       []string
	GrantTypes   []string
	ProjectID    *string
}

// RegisterClientResult carries the created client and, for confidential
// clients, the generated secret. The secret is never retrievable again.
type RegisterClientResult struct {
	Client *models.OAuthClient
	Secret string
}

// RegisterClient validates and persists a new OAuth client.
func (s *Service) RegisterClient(ctx context.Context, in RegisterClientInput) (*RegisterClientResult, error) {
	if !clientIDPattern.MatchString(in.ClientID) {
		return nil, apperr.E(apperr.KindValidation, "client_id must be 3-64 lowercase letters, digits, '.', '_' or '-'")
	}
	if in.Name == "" {
		return nil, apperr.E(apperr.KindValidation, "name is required")
	}
	if in.ClientType != models.ClientTypePublic && in.ClientType != models.ClientTypeConfidential {
		return nil, apperr.Ef(apperr.KindValidation, "client_type must be %q or %q", models.ClientTypePublic, models.ClientTypeConfidential)
	}

	grants := in.GrantTypes
	if len(grants) == 0 {
		grants = []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken}
	}
	for _, g := range grants {
		switch g {
		case GrantTypeAuthorizationCode, GrantTypeRefreshToken, GrantTypeClientCredentials, GrantTypePassword:
		default:
			return nil, apperr.Ef(apperr.KindValidation, "unknown grant type: %s", g)
		}
		if in.ClientType == models.ClientTypePublic && (g == GrantTypeClientCredentials || g == GrantTypePassword) {
			return nil, apperr.Ef(apperr.KindValidation, "public clients cannot use the %s grant", g)
		}
	}

	if models.StringSlice(grants).Contains(GrantTypeAuthorizationCode) && len(in.RedirectURIs) == 0 {
		return nil, apperr.E(apperr.KindValidation, "at least one redirect_uri is required for the authorization_code grant")
	}
	for _, raw := range in.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, apperr.Ef(apperr.KindValidation, "invalid redirect_uri: %s", raw)
		}
		if u.Fragment != "" {
			return nil, apperr.Ef(apperr.KindValidation, "redirect_uri must not contain a fragment: %s", raw)
		}
	}

	scope := normalizeScope(in.Scopes)
	if err := s.registry.ValidateScope(scope); err != nil {
		return nil, err
	}

	if in.ProjectID != nil {
		if _, err := s.store.Projects.GetByID(ctx, *in.ProjectID); err != nil {
			return nil, err
		}
	}

	client := &models.OAuthClient{
		ID:                bunx.NewUUIDv7(),
		ClientID:          in.ClientID,
		ClientType:        in.ClientType,
		Name:              in.Name,
		RedirectURIs:      models.StringSlice(in.RedirectURIs),
		AllowedScopes:     models.StringSlice(splitScope(scope)),
		AllowedGrantTypes: models.StringSlice(grants),
		ProjectID:         in.ProjectID,
		CreatedAt:         time.Now(),
	}

	var secret string
	if in.ClientType == models.ClientTypeConfidential {
		var err error
		secret, err = auth.GenerateOpaqueToken()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to generate client secret", err)
		}
		client.ClientSecret = &secret
	}

	if err := s.store.Clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return &RegisterClientResult{Client: client, Secret: secret}, nil
}

// RotateClientSecret replaces a confidential client's secret. Tokens
// already issued stay valid; only new client authentications are
// affected.
func (s *Service) RotateClientSecret(ctx context.Context, clientID string) (*RegisterClientResult, error) {
	client, err := s.store.Clients.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.IsConfidential() {
		return nil, apperr.E(apperr.KindValidation, "public clients have no secret to rotate")
	}
	secret, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate client secret", err)
	}
	client.ClientSecret = &secret
	if err := s.store.Clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return &RegisterClientResult{Client: client, Secret: secret}, nil
}

// SetClientDisabled flips the soft-disable flag. Disabled clients fail
// every protocol interaction but keep their registration for audit.
func (s *Service) SetClientDisabled(ctx context.Context, clientID string, disabled bool) (*models.OAuthClient, error) {
	client, err := s.store.Clients.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	client.Disabled = disabled
	if err := s.store.Clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
