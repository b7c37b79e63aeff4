package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRevokedJTIRepository implements RevokedJTIRepository using Bun ORM
type BunRevokedJTIRepository struct {
	db bun.IDB
}

// NewBunRevokedJTIRepository creates a new Bun-based revoked JTI
// repository
func NewBunRevokedJTIRepository(db bun.IDB) *BunRevokedJTIRepository {
	return &BunRevokedJTIRepository{db: db}
}

// Revoke blacklists a jti. Revoking twice is idempotent.
func (r *BunRevokedJTIRepository) Revoke(ctx context.Context, entry *models.RevokedJTI) error {
	_, err := r.db.NewInsert().
		Model(entry).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return translate(err, "revoke jti")
	}
	return nil
}

// IsRevoked reports whether a jti is blacklisted
func (r *BunRevokedJTIRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RevokedJTI)(nil)).
		Where("jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, translate(err, "check revoked jti")
	}
	return exists, nil
}

// DeleteExpired removes entries whose tokens have expired anyway
func (r *BunRevokedJTIRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.RevokedJTI)(nil)).
		Where("exp < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "delete expired revoked jtis")
	}
	return result.RowsAffected()
}
