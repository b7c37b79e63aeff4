package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/db/models"
)

// UserRepository exposes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, page Page) ([]models.User, bool, error)
}

// OAuthClientRepository exposes persistence operations for OAuth clients.
type OAuthClientRepository interface {
	Create(ctx context.Context, client *models.OAuthClient) error
	GetByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error)
	Update(ctx context.Context, client *models.OAuthClient) error
	List(ctx context.Context, page Page) ([]models.OAuthClient, bool, error)
}

// AuthorizationCodeRepository exposes persistence operations for
// single-use authorization codes.
type AuthorizationCodeRepository interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	Get(ctx context.Context, code string) (*models.AuthorizationCode, error)

	// Consume flips used false to true with a store-level compare-and-swap.
	// Exactly one concurrent caller wins; losers get conflict.
	Consume(ctx context.Context, code string) error

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TokenRepository exposes persistence operations for issued token pairs.
type TokenRepository interface {
	Create(ctx context.Context, token *models.OAuth2Token) error
	GetByID(ctx context.Context, id string) (*models.OAuth2Token, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*models.OAuth2Token, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*models.OAuth2Token, error)

	// UpdateAccessToken swaps in a freshly minted access token on refresh.
	// The row keeps its id, refresh token, and granted scope.
	UpdateAccessToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error

	Revoke(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// APIKeyRepository exposes persistence operations for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)

	// ListByPrefix returns every key sharing the 8-char prefix. The caller
	// verifies the PBKDF2 hash against each candidate.
	ListByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error)

	Update(ctx context.Context, key *models.APIKey) error
	Delete(ctx context.Context, id string) error
	ListByResource(ctx context.Context, resourceID string, page Page) ([]models.APIKey, bool, error)
}

// RoleRepository exposes persistence operations for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error

	// ListAll returns the whole role table for graph expansion.
	ListAll(ctx context.Context) ([]models.Role, error)
}

// RoleAssignmentRepository exposes persistence operations for role
// assignments.
type RoleAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.RoleAssignment) error
	GetByID(ctx context.Context, id string) (*models.RoleAssignment, error)
	Delete(ctx context.Context, id string) error
	ListByTarget(ctx context.Context, targetID string) ([]models.RoleAssignment, error)

	// ListByTargetAtResources returns the target's assignments at any of
	// the given scopes, for a single hierarchy walk.
	ListByTargetAtResources(ctx context.Context, targetID string, resourceIDs []string) ([]models.RoleAssignment, error)

	ListByResource(ctx context.Context, resourceID string) ([]models.RoleAssignment, error)
	CountByRole(ctx context.Context, roleID string) (int, error)
}

// OrganizationRepository exposes persistence operations for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetByName(ctx context.Context, name string) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Page) ([]models.Organization, bool, error)
}

// ProjectRepository exposes persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	ListByOrganization(ctx context.Context, orgID string, page Page) ([]models.Project, bool, error)
}

// MemberRepository exposes persistence operations for memberships.
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	Get(ctx context.Context, resourceID, userID string) (*models.Member, error)
	GetByID(ctx context.Context, id string) (*models.Member, error)
	Delete(ctx context.Context, id string) error
	ListByResource(ctx context.Context, resourceID string, page Page) ([]models.Member, bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Member, error)
}

// InviteRepository exposes persistence operations for invites.
type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	GetByToken(ctx context.Context, token string) (*models.Invite, error)

	// GetByEmailAndResource returns the invite for the pair regardless of
	// expiry; the orchestrator decides whether to reuse or replace it.
	GetByEmailAndResource(ctx context.Context, email, resourceID string) (*models.Invite, error)

	Delete(ctx context.Context, id string) error
	ListByResource(ctx context.Context, resourceID string) ([]models.Invite, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionRepository exposes persistence operations for console sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Touch(ctx context.Context, id string, lastUsed time.Time) error
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RevokedJTIRepository exposes the JWT blacklist.
type RevokedJTIRepository interface {
	Revoke(ctx context.Context, entry *models.RevokedJTI) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
