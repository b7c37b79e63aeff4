package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunSessionRepository implements SessionRepository using Bun ORM
type BunSessionRepository struct {
	db bun.IDB
}

// NewBunSessionRepository creates a new Bun-based session repository
func NewBunSessionRepository(db bun.IDB) *BunSessionRepository {
	return &BunSessionRepository{db: db}
}

// Create inserts a new session
func (r *BunSessionRepository) Create(ctx context.Context, session *models.Session) error {
	_, err := r.db.NewInsert().
		Model(session).
		Exec(ctx)
	if err != nil {
		return translate(err, "create session")
	}
	return nil
}

// GetByTokenHash retrieves a session by the hash of its cookie value
func (r *BunSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := new(models.Session)
	err := r.db.NewSelect().
		Model(session).
		Where("token_hash = ?", tokenHash).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get session by token hash")
	}
	return session, nil
}

// Touch updates last_used_at. Losing a touch is harmless, so rows
// affected is not checked.
func (r *BunSessionRepository) Touch(ctx context.Context, id string, lastUsed time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("last_used_at = ?", lastUsed).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "touch session")
	}
	return nil
}

// Revoke marks a session revoked
func (r *BunSessionRepository) Revoke(ctx context.Context, id string) error {
	result, err := r.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("revoked = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "revoke session")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "revoke session rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "session not found: %s", id)
	}
	return nil
}

// Delete removes a session
func (r *BunSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete session")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete session rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "session not found: %s", id)
	}
	return nil
}

// DeleteExpired removes sessions past their lifetime
func (r *BunSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.Session)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "delete expired sessions")
	}
	return result.RowsAffected()
}
