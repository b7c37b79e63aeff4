package repository

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db bun.IDB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db bun.IDB) *BunRoleRepository {
	return &BunRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunRoleRepository) Create(ctx context.Context, role *models.Role) error {
	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return translate(err, "create role")
	}
	return nil
}

// GetByID retrieves a role by its ID
func (r *BunRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get role by id")
	}
	return role, nil
}

// GetByName retrieves a role by its unique name
func (r *BunRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get role by name")
	}
	return role, nil
}

// Update updates an existing role
func (r *BunRoleRepository) Update(ctx context.Context, role *models.Role) error {
	result, err := r.db.NewUpdate().
		Model(role).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update role")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update role rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "role not found: %s", role.ID)
	}
	return nil
}

// Delete removes a role
func (r *BunRoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete role")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete role rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "role not found: %s", id)
	}
	return nil
}

// ListAll returns every role for graph expansion
func (r *BunRoleRepository) ListAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list roles")
	}
	return roles, nil
}
