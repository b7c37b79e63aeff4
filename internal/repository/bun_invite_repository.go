package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunInviteRepository implements InviteRepository using Bun ORM
type BunInviteRepository struct {
	db bun.IDB
}

// NewBunInviteRepository creates a new Bun-based invite repository
func NewBunInviteRepository(db bun.IDB) *BunInviteRepository {
	return &BunInviteRepository{db: db}
}

// Create inserts a new invite
func (r *BunInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	_, err := r.db.NewInsert().
		Model(invite).
		Exec(ctx)
	if err != nil {
		return translate(err, "create invite")
	}
	return nil
}

// GetByToken retrieves an invite by its temporary token
func (r *BunInviteRepository) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	invite := new(models.Invite)
	err := r.db.NewSelect().
		Model(invite).
		Where("temporary_token = ?", token).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get invite by token")
	}
	return invite, nil
}

// GetByEmailAndResource retrieves the invite for (email, resource)
func (r *BunInviteRepository) GetByEmailAndResource(ctx context.Context, email, resourceID string) (*models.Invite, error) {
	invite := new(models.Invite)
	err := r.db.NewSelect().
		Model(invite).
		Where("email = ?", email).
		Where("resource_id = ?", resourceID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get invite by email and resource")
	}
	return invite, nil
}

// Delete removes an invite
func (r *BunInviteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Invite)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete invite")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete invite rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "invite not found: %s", id)
	}
	return nil
}

// ListByResource returns every invite for a resource
func (r *BunInviteRepository) ListByResource(ctx context.Context, resourceID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := r.db.NewSelect().
		Model(&invites).
		Where("resource_id = ?", resourceID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list invites by resource")
	}
	return invites, nil
}

// DeleteExpired removes invites past their lifetime
func (r *BunInviteRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.Invite)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "delete expired invites")
	}
	return result.RowsAffected()
}
