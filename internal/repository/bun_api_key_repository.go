package repository

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunAPIKeyRepository implements APIKeyRepository using Bun ORM
type BunAPIKeyRepository struct {
	db bun.IDB
}

// NewBunAPIKeyRepository creates a new Bun-based API key repository
func NewBunAPIKeyRepository(db bun.IDB) *BunAPIKeyRepository {
	return &BunAPIKeyRepository{db: db}
}

// Create inserts a new API key record
func (r *BunAPIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	_, err := r.db.NewInsert().
		Model(key).
		Exec(ctx)
	if err != nil {
		return translate(err, "create api key")
	}
	return nil
}

// GetByID retrieves an API key by its ID
func (r *BunAPIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	key := new(models.APIKey)
	err := r.db.NewSelect().
		Model(key).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get api key by id")
	}
	return key, nil
}

// ListByPrefix returns all keys with the given prefix. Prefixes are not
// unique; hash verification picks the matching key.
func (r *BunAPIKeyRepository) ListByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.NewSelect().
		Model(&keys).
		Where("prefix = ?", prefix).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list api keys by prefix")
	}
	return keys, nil
}

// Update updates an existing API key
func (r *BunAPIKeyRepository) Update(ctx context.Context, key *models.APIKey) error {
	result, err := r.db.NewUpdate().
		Model(key).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update api key")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update api key rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "api key not found: %s", key.ID)
	}
	return nil
}

// Delete removes an API key
func (r *BunAPIKeyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.APIKey)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete api key")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete api key rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "api key not found: %s", id)
	}
	return nil
}

// ListByResource returns a page of keys scoped to a resource
func (r *BunAPIKeyRepository) ListByResource(ctx context.Context, resourceID string, page Page) ([]models.APIKey, bool, error) {
	return paginate[models.APIKey](ctx, r.db, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("resource_id = ?", resourceID)
	})
}
