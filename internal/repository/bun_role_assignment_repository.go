package repository

import (
	"context"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRoleAssignmentRepository implements RoleAssignmentRepository using
// Bun ORM
type BunRoleAssignmentRepository struct {
	db bun.IDB
}

// NewBunRoleAssignmentRepository creates a new Bun-based role assignment
// repository
func NewBunRoleAssignmentRepository(db bun.IDB) *BunRoleAssignmentRepository {
	return &BunRoleAssignmentRepository{db: db}
}

// Create inserts a new role assignment
func (r *BunRoleAssignmentRepository) Create(ctx context.Context, assignment *models.RoleAssignment) error {
	_, err := r.db.NewInsert().
		Model(assignment).
		Exec(ctx)
	if err != nil {
		return translate(err, "create role assignment")
	}
	return nil
}

// GetByID retrieves an assignment by its ID
func (r *BunRoleAssignmentRepository) GetByID(ctx context.Context, id string) (*models.RoleAssignment, error) {
	assignment := new(models.RoleAssignment)
	err := r.db.NewSelect().
		Model(assignment).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get role assignment")
	}
	return assignment, nil
}

// Delete removes an assignment
func (r *BunRoleAssignmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.RoleAssignment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete role assignment")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete role assignment rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "role assignment not found: %s", id)
	}
	return nil
}

// ListByTarget returns every assignment held by a principal
func (r *BunRoleAssignmentRepository) ListByTarget(ctx context.Context, targetID string) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&assignments).
		Where("target_id = ?", targetID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list role assignments by target")
	}
	return assignments, nil
}

// ListByTargetAtResources returns the target's assignments at any of the
// given scopes in one query
func (r *BunRoleAssignmentRepository) ListByTargetAtResources(ctx context.Context, targetID string, resourceIDs []string) ([]models.RoleAssignment, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	var assignments []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&assignments).
		Where("target_id = ?", targetID).
		Where("resource_id IN (?)", bun.In(resourceIDs)).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list role assignments at resources")
	}
	return assignments, nil
}

// ListByResource returns every assignment at a scope
func (r *BunRoleAssignmentRepository) ListByResource(ctx context.Context, resourceID string) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&assignments).
		Where("resource_id = ?", resourceID).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list role assignments by resource")
	}
	return assignments, nil
}

// CountByRole counts assignments referencing a role, used to block
// deleting roles still in use
func (r *BunRoleAssignmentRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.RoleAssignment)(nil)).
		Where("role_id = ?", roleID).
		Count(ctx)
	if err != nil {
		return 0, translate(err, "count role assignments")
	}
	return count, nil
}
