package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrganizationRepository implements OrganizationRepository using Bun ORM
type BunOrganizationRepository struct {
	db bun.IDB
}

// NewBunOrganizationRepository creates a new Bun-based organization
// repository
func NewBunOrganizationRepository(db bun.IDB) *BunOrganizationRepository {
	return &BunOrganizationRepository{db: db}
}

// Create inserts a new organization
func (r *BunOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	_, err := r.db.NewInsert().
		Model(org).
		Exec(ctx)
	if err != nil {
		return translate(err, "create organization")
	}
	return nil
}

// GetByID retrieves an organization by its ID
func (r *BunOrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := new(models.Organization)
	err := r.db.NewSelect().
		Model(org).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get organization by id")
	}
	return org, nil
}

// GetByName retrieves an organization by its unique name
func (r *BunOrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	org := new(models.Organization)
	err := r.db.NewSelect().
		Model(org).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get organization by name")
	}
	return org, nil
}

// Update updates an existing organization
func (r *BunOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(org).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update organization")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update organization rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "organization not found: %s", org.ID)
	}
	return nil
}

// Delete removes an organization
func (r *BunOrganizationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Organization)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete organization")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete organization rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "organization not found: %s", id)
	}
	return nil
}

// List returns a page of organizations ordered by (created_at, id)
func (r *BunOrganizationRepository) List(ctx context.Context, page Page) ([]models.Organization, bool, error) {
	return paginate[models.Organization](ctx, r.db, page, nil)
}
