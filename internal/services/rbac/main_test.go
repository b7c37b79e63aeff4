package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// setupService builds the full RBAC stack over an in-memory SQLite store
// with the schema and built-in roles applied.
func setupService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	store := repository.NewStore(db)
	graph := NewGraph(store.Roles)
	eval := NewEvaluator(store, graph)
	svc := NewService(store, graph, eval, permissions.MustLoad())
	return svc, store
}

func mustCreateUser(t *testing.T, store *repository.Store, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:             bunx.NewUUIDv7(),
		Username:       username,
		HashedPassword: "$2a$10$notarealhash",
	}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func mustCreateOrg(t *testing.T, store *repository.Store, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		ID:   bunx.NewUUIDv7(),
		Name: name,
	}
	require.NoError(t, store.Organizations.Create(context.Background(), org))
	return org
}

func mustCreateProject(t *testing.T, store *repository.Store, orgID, name string) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:             bunx.NewUUIDv7(),
		OrganizationID: orgID,
		Name:           name,
	}
	require.NoError(t, store.Projects.Create(context.Background(), project))
	return project
}

func mustRoleByName(t *testing.T, store *repository.Store, name string) *models.Role {
	t.Helper()
	role, err := store.Roles.GetByName(context.Background(), name)
	require.NoError(t, err)
	return role
}

func mustAssign(t *testing.T, store *repository.Store, targetID, roleID, resourceID string) {
	t.Helper()
	err := store.RoleAssignments.Create(context.Background(), &models.RoleAssignment{
		ID:         bunx.NewUUIDv7(),
		TargetID:   targetID,
		RoleID:     roleID,
		ResourceID: resourceID,
		AssignedAt: time.Now(),
	})
	require.NoError(t, err)
}
