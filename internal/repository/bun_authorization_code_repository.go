package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunAuthorizationCodeRepository implements AuthorizationCodeRepository
// using Bun ORM
type BunAuthorizationCodeRepository struct {
	db bun.IDB
}

// NewBunAuthorizationCodeRepository creates a new Bun-based authorization
// code repository
func NewBunAuthorizationCodeRepository(db bun.IDB) *BunAuthorizationCodeRepository {
	return &BunAuthorizationCodeRepository{db: db}
}

// Create inserts a new authorization code
func (r *BunAuthorizationCodeRepository) Create(ctx context.Context, code *models.AuthorizationCode) error {
	_, err := r.db.NewInsert().
		Model(code).
		Exec(ctx)
	if err != nil {
		return translate(err, "create authorization code")
	}
	return nil
}

// Get retrieves an authorization code by its value
func (r *BunAuthorizationCodeRepository) Get(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	ac := new(models.AuthorizationCode)
	err := r.db.NewSelect().
		Model(ac).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get authorization code")
	}
	return ac, nil
}

// Consume marks a code used with a single conditional UPDATE. The WHERE
// clause on used = false makes the store the arbiter under concurrency:
// two racing callers produce one affected row and one conflict.
func (r *BunAuthorizationCodeRepository) Consume(ctx context.Context, code string) error {
	result, err := r.db.NewUpdate().
		Model((*models.AuthorizationCode)(nil)).
		Set("used = ?", true).
		Where("code = ?", code).
		Where("used = ?", false).
		Exec(ctx)
	if err != nil {
		return translate(err, "consume authorization code")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "consume authorization code rows affected")
	}
	if rowsAffected == 0 {
		return apperr.E(apperr.KindConflict, "authorization code already used or unknown")
	}
	return nil
}

// DeleteExpired removes codes past their lifetime
func (r *BunAuthorizationCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.AuthorizationCode)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "delete expired authorization codes")
	}
	return result.RowsAffected()
}
