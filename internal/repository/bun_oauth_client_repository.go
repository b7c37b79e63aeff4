package repository

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOAuthClientRepository implements OAuthClientRepository using Bun ORM
type BunOAuthClientRepository struct {
	db bun.IDB
}

// NewBunOAuthClientRepository creates a new Bun-based OAuth client repository
func NewBunOAuthClientRepository(db bun.IDB) *BunOAuthClientRepository {
	return &BunOAuthClientRepository{db: db}
}

// Create inserts a new OAuth client
func (r *BunOAuthClientRepository) Create(ctx context.Context, client *models.OAuthClient) error {
	_, err := r.db.NewInsert().
		Model(client).
		Exec(ctx)
	if err != nil {
		return translate(err, "create oauth client")
	}
	return nil
}

// GetByClientID retrieves a client by its public client_id
func (r *BunOAuthClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	client := new(models.OAuthClient)
	err := r.db.NewSelect().
		Model(client).
		Where("client_id = ?", clientID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get oauth client")
	}
	return client, nil
}

// Update updates an existing client
func (r *BunOAuthClientRepository) Update(ctx context.Context, client *models.OAuthClient) error {
	result, err := r.db.NewUpdate().
		Model(client).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update oauth client")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update oauth client rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "oauth client not found: %s", client.ClientID)
	}
	return nil
}

// List returns a page of clients ordered by (created_at, id)
func (r *BunOAuthClientRepository) List(ctx context.Context, page Page) ([]models.OAuthClient, bool, error) {
	return paginate[models.OAuthClient](ctx, r.db, page, nil)
}
