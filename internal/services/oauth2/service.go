package oauth2

import (
	"sort"
	"strings"
	"time"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// AuthorizationCodeTTL bounds the authorize → token exchange window.
const AuthorizationCodeTTL = 10 * time.Minute

// Grant types dispatched by the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
)

// Service drives the OAuth2/OIDC protocol surface: authorize, token,
// revocation, introspection, userinfo, and discovery.
type Service struct {
	store       *repository.Store
	signer      *auth.Signer
	registry    *permissions.Registry
	revocations cache.RevocationSet
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewService builds the OAuth2 service.
func NewService(store *repository.Store, signer *auth.Signer, registry *permissions.Registry, revocations cache.RevocationSet, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:       store,
		signer:      signer,
		registry:    registry,
		revocations: revocations,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// splitScope breaks a space-delimited scope string into its values.
func splitScope(scope string) []string {
	return strings.Fields(scope)
}

// scopeSubset reports whether every requested value appears in granted.
func scopeSubset(requested, granted []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// hasScope reports whether the space-delimited scope string carries the
// value.
func hasScope(scope, value string) bool {
	for _, s := range splitScope(scope) {
		if s == value {
			return true
		}
	}
	return false
}

// normalizeScope deduplicates and sorts scope values back into one string.
func normalizeScope(values []string) string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}
