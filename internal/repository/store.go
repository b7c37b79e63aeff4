package repository

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// Store bundles every repository over one bun handle so services take a
// single dependency and transactions can span repositories.
type Store struct {
	db bun.IDB

	Users           UserRepository
	Clients         OAuthClientRepository
	Codes           AuthorizationCodeRepository
	Tokens          TokenRepository
	APIKeys         APIKeyRepository
	Roles           RoleRepository
	RoleAssignments RoleAssignmentRepository
	Organizations   OrganizationRepository
	Projects        ProjectRepository
	Members         MemberRepository
	Invites         InviteRepository
	Sessions        SessionRepository
	RevokedJTIs     RevokedJTIRepository
}

// NewStore builds a Store over a database or transaction handle.
func NewStore(db bun.IDB) *Store {
	return &Store{
		db:              db,
		Users:           NewBunUserRepository(db),
		Clients:         NewBunOAuthClientRepository(db),
		Codes:           NewBunAuthorizationCodeRepository(db),
		Tokens:          NewBunTokenRepository(db),
		APIKeys:         NewBunAPIKeyRepository(db),
		Roles:           NewBunRoleRepository(db),
		RoleAssignments: NewBunRoleAssignmentRepository(db),
		Organizations:   NewBunOrganizationRepository(db),
		Projects:        NewBunProjectRepository(db),
		Members:         NewBunMemberRepository(db),
		Invites:         NewBunInviteRepository(db),
		Sessions:        NewBunSessionRepository(db),
		RevokedJTIs:     NewBunRevokedJTIRepository(db),
	}
}

// RunInTx executes fn inside a transaction, passing a Store bound to it.
// Any error rolls the whole transaction back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		// Already inside a transaction; run against the same handle.
		return fn(ctx, s)
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}
