package iam

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

// PrincipalType identifies the credential class behind a request.
type PrincipalType string

const (
	// PrincipalTypeUser represents a human user (JWT or session cookie).
	PrincipalTypeUser PrincipalType = "user"

	// PrincipalTypeAPIKey represents a process holding an opaque API key.
	PrincipalTypeAPIKey PrincipalType = "api_key"
)

// Principal represents an authenticated identity.
//
// This struct is IMMUTABLE after construction. Everything authorization
// needs is resolved once at authentication time; handlers read it from
// the request context and never modify it.
type Principal struct {
	// ID references the backing record: users.id or api_keys.id.
	ID string

	// Type differentiates users from API keys.
	Type PrincipalType

	// Username and Email are set for user principals only.
	Username string
	Email    string

	// ResourceID is the API key's scope; empty for users.
	ResourceID string

	// Scope is the OAuth scope string carried by the presenting token,
	// empty for first-party credentials (sessions, API keys).
	Scope string

	// TokenID is the jti of the presenting JWT, used for logout
	// blacklisting. Empty for non-JWT credentials.
	TokenID string

	// SessionID references the active console session when the request
	// authenticated with a cookie.
	SessionID string
}

// IsAPIKey reports whether the principal is a scoped API key.
func (p *Principal) IsAPIKey() bool {
	return p.Type == PrincipalTypeAPIKey
}

// Subject converts the principal into the evaluator's view. Third-party
// scope strings are translated to permission caps by the caller, which
// owns the registry.
func (p *Principal) Subject(scopePermissions []string) rbac.Subject {
	return rbac.Subject{
		ID:               p.ID,
		IsAPIKey:         p.IsAPIKey(),
		KeyResourceID:    p.ResourceID,
		ScopePermissions: scopePermissions,
	}
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal on the request context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the principal, or nil when the request
// is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
