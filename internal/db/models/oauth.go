package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Client types per RFC 6749 Section 2.1.
const (
	ClientTypePublic       = "public"
	ClientTypeConfidential = "confidential"
)

// OAuthClient is a registered OAuth2 client application. Immutable after
// creation except for disabling and secret rotation.
type OAuthClient struct {
	bun.BaseModel `bun:"table:oauth_clients,alias:oc"`

	ID                string      `bun:"id,pk,type:uuid"`
	ClientID          string      `bun:"client_id,notnull,unique"`
	ClientSecret      *string     `bun:"client_secret"` // nil for public clients
	ClientType        string      `bun:"client_type,notnull"`
	Name              string      `bun:"name,notnull"`
	RedirectURIs      StringSlice `bun:"redirect_uris,type:jsonb,notnull,default:'[]'"`
	AllowedScopes     StringSlice `bun:"allowed_scopes,type:jsonb,notnull,default:'[]'"`
	AllowedGrantTypes StringSlice `bun:"allowed_grant_types,type:jsonb,notnull,default:'[]'"`
	ProjectID         *string     `bun:"project_id,type:uuid"`
	Disabled          bool        `bun:"disabled,notnull,default:false"`
	CreatedAt         time.Time   `bun:"created_at,notnull,default:current_timestamp"`
}

// IsConfidential reports whether the client must authenticate with a secret.
func (c *OAuthClient) IsConfidential() bool {
	return c.ClientType == ClientTypeConfidential
}

// AuthorizationCode is a single-use grant minted by the authorize endpoint.
// The used flag flips false→true exactly once via a store-level
// compare-and-swap; losing that race is invalid_grant.
type AuthorizationCode struct {
	bun.BaseModel `bun:"table:oauth_authorization_codes,alias:ac"`

	Code                string    `bun:"code,pk"`
	ClientID            string    `bun:"client_id,notnull"`
	RedirectURI         string    `bun:"redirect_uri,notnull"`
	Scope               string    `bun:"scope,notnull"`
	UserID              string    `bun:"user_id,notnull,type:uuid"`
	Nonce               string    `bun:"nonce"`
	CodeChallenge       string    `bun:"code_challenge"`
	CodeChallengeMethod string    `bun:"code_challenge_method"`
	AuthTime            time.Time `bun:"auth_time,notnull"`
	ExpiresAt           time.Time `bun:"expires_at,notnull"`
	Used                bool      `bun:"used,notnull,default:false"`
	CreatedAt           time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// IsExpired reports whether the code is past its lifetime.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// HasPKCE reports whether the code was issued with a PKCE challenge.
func (c *AuthorizationCode) HasPKCE() bool {
	return c.CodeChallenge != ""
}

// OAuth2Token records an issued access/refresh token pair. Access tokens
// are signed JWTs whose jti equals ID; refresh tokens are always opaque.
// Expired refresh tokens remain for audit but are rejected.
type OAuth2Token struct {
	bun.BaseModel `bun:"table:oauth_tokens,alias:ot"`

	ID                  string    `bun:"id,pk,type:uuid"`
	AccessToken         string    `bun:"access_token,notnull,unique"`
	RefreshToken        *string   `bun:"refresh_token,unique"`
	Scope               string    `bun:"scope,notnull"`
	UserID              string    `bun:"user_id,notnull,type:uuid"`
	ClientID            string    `bun:"client_id,notnull"`
	IssuedAt            time.Time `bun:"issued_at,notnull"`
	ExpiresAt           time.Time `bun:"expires_at,notnull"`
	Revoked             bool      `bun:"revoked,notnull,default:false"`
	AuthorizationCodeID *string   `bun:"authorization_code_id"`
}

// IsExpired reports whether the access token is past its lifetime.
func (t *OAuth2Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
