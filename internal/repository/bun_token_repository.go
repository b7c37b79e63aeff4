package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunTokenRepository implements TokenRepository using Bun ORM
type BunTokenRepository struct {
	db bun.IDB
}

// NewBunTokenRepository creates a new Bun-based token repository
func NewBunTokenRepository(db bun.IDB) *BunTokenRepository {
	return &BunTokenRepository{db: db}
}

// Create inserts a new token record
func (r *BunTokenRepository) Create(ctx context.Context, token *models.OAuth2Token) error {
	_, err := r.db.NewInsert().
		Model(token).
		Exec(ctx)
	if err != nil {
		return translate(err, "create token")
	}
	return nil
}

// GetByID retrieves a token by its id (the access token jti)
func (r *BunTokenRepository) GetByID(ctx context.Context, id string) (*models.OAuth2Token, error) {
	token := new(models.OAuth2Token)
	err := r.db.NewSelect().
		Model(token).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get token by id")
	}
	return token, nil
}

// GetByAccessToken retrieves a token by its access token value
func (r *BunTokenRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.OAuth2Token, error) {
	token := new(models.OAuth2Token)
	err := r.db.NewSelect().
		Model(token).
		Where("access_token = ?", accessToken).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get token by access token")
	}
	return token, nil
}

// GetByRefreshToken retrieves a token by its refresh token value
func (r *BunTokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*models.OAuth2Token, error) {
	token := new(models.OAuth2Token)
	err := r.db.NewSelect().
		Model(token).
		Where("refresh_token = ?", refreshToken).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get token by refresh token")
	}
	return token, nil
}

// UpdateAccessToken swaps the access token on refresh, keeping the row
// id so the jti stays stable across refreshes.
func (r *BunTokenRepository) UpdateAccessToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*models.OAuth2Token)(nil)).
		Set("access_token = ?", accessToken).
		Set("expires_at = ?", expiresAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "update access token")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update access token rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "token not found: %s", id)
	}
	return nil
}

// Revoke marks a token revoked. Revoking an already revoked token is a
// no-op, matching RFC 7009.
func (r *BunTokenRepository) Revoke(ctx context.Context, id string) error {
	result, err := r.db.NewUpdate().
		Model((*models.OAuth2Token)(nil)).
		Set("revoked = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "revoke token")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "revoke token rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "token not found: %s", id)
	}
	return nil
}

// DeleteExpired removes tokens past their lifetime
func (r *BunTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.OAuth2Token)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "delete expired tokens")
	}
	return result.RowsAffected()
}
