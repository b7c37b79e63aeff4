package repository

import (
	"context"
	"time"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

// BunProjectRepository implements ProjectRepository using Bun ORM
type BunProjectRepository struct {
	db bun.IDB
}

// NewBunProjectRepository creates a new Bun-based project repository
func NewBunProjectRepository(db bun.IDB) *BunProjectRepository {
	return &BunProjectRepository{db: db}
}

// Create inserts a new project
func (r *BunProjectRepository) Create(ctx context.Context, project *models.Project) error {
	_, err := r.db.NewInsert().
		Model(project).
		Exec(ctx)
	if err != nil {
		return translate(err, "create project")
	}
	return nil
}

// GetByID retrieves a project by its ID
func (r *BunProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	project := new(models.Project)
	err := r.db.NewSelect().
		Model(project).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "get project by id")
	}
	return project, nil
}

// Update updates an existing project
func (r *BunProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(project).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update project")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "update project rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "project not found: %s", project.ID)
	}
	return nil
}

// Delete removes a project
func (r *BunProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Project)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err, "delete project")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete project rows affected")
	}
	if rowsAffected == 0 {
		return apperr.Ef(apperr.KindNotFound, "project not found: %s", id)
	}
	return nil
}

// ListByOrganization returns a page of an organization's projects
func (r *BunProjectRepository) ListByOrganization(ctx context.Context, orgID string, page Page) ([]models.Project, bool, error) {
	return paginate[models.Project](ctx, r.db, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("organization_id = ?", orgID)
	})
}
