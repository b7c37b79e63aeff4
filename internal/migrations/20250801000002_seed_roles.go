package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250801000002, down_20250801000002)
}

type seedRole struct {
	name        string
	description string
	parent      string // name of the stronger role, "" for PlatformAdmin
	permissions []string
}

// Built-in role DAG. Parent edges point at the stronger role; expansion
// walks the inverse direction so an admin subsumes the narrower roles.
var builtinRoles = []seedRole{
	{
		name:        permissions.RolePlatformAdmin,
		description: "Full control over the platform and every tenant",
		permissions: []string{
			permissions.OrganizationCreate,
			permissions.OrganizationDelete,
			permissions.UserGet,
			permissions.UserList,
			permissions.UserUpdate,
			permissions.UserDisable,
			permissions.ClientCreate,
			permissions.ClientGet,
			permissions.ClientList,
			permissions.ClientUpdate,
			permissions.ClientDisable,
			permissions.IAMSetPolicy,
			permissions.IAMGetPolicy,
		},
	},
	{
		name:        permissions.RoleOrganizationAdmin,
		description: "Administers one organization and its projects",
		parent:      permissions.RolePlatformAdmin,
		permissions: []string{
			permissions.OrganizationUpdate,
			permissions.OrganizationDelete,
			permissions.ProjectCreate,
			permissions.ProjectDelete,
			permissions.MemberAdd,
			permissions.MemberRemove,
			permissions.InviteCreate,
			permissions.InviteDelete,
			permissions.IAMSetPolicy,
			permissions.IAMGetPolicy,
			permissions.APIKeyCreate,
			permissions.APIKeyRotate,
			permissions.APIKeyDelete,
		},
	},
	{
		name:        permissions.RoleOrganizationEditor,
		description: "Edits organization and project settings",
		parent:      permissions.RoleOrganizationAdmin,
		permissions: []string{
			permissions.OrganizationUpdate,
			permissions.ProjectUpdate,
			permissions.InviteCreate,
			permissions.MemberAdd,
			permissions.APIKeyCreate,
		},
	},
	{
		name:        permissions.RoleOrganizationViewer,
		description: "Read-only access to an organization",
		parent:      permissions.RoleOrganizationEditor,
		permissions: []string{
			permissions.OrganizationGet,
			permissions.OrganizationList,
			permissions.ProjectGet,
			permissions.ProjectList,
			permissions.MemberGet,
			permissions.MemberList,
			permissions.InviteGet,
			permissions.InviteList,
			permissions.APIKeyGet,
			permissions.APIKeyList,
			permissions.IAMGetPolicy,
		},
	},
	{
		name:        permissions.RoleProjectAdmin,
		description: "Administers one project",
		parent:      permissions.RoleOrganizationAdmin,
		permissions: []string{
			permissions.ProjectDelete,
			permissions.MemberAdd,
			permissions.MemberRemove,
			permissions.InviteCreate,
			permissions.InviteDelete,
			permissions.IAMSetPolicy,
			permissions.IAMGetPolicy,
			permissions.APIKeyCreate,
			permissions.APIKeyRotate,
			permissions.APIKeyDelete,
		},
	},
	{
		name:        permissions.RoleProjectEditor,
		description: "Edits project settings and resources",
		parent:      permissions.RoleProjectAdmin,
		permissions: []string{
			permissions.ProjectUpdate,
			permissions.APIKeyCreate,
		},
	},
	{
		name:        permissions.RoleProjectViewer,
		description: "Read-only access to a project",
		parent:      permissions.RoleProjectEditor,
		permissions: []string{
			permissions.ProjectGet,
			permissions.MemberGet,
			permissions.MemberList,
			permissions.InviteGet,
			permissions.APIKeyGet,
			permissions.APIKeyList,
			permissions.IAMGetPolicy,
		},
	},
}

// up_20250801000002 seeds the built-in role DAG
func up_20250801000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding built-in roles...")

	// Insert in declaration order so every parent exists before its
	// children reference it. Idempotent: existing roles are left alone.
	ids := make(map[string]string, len(builtinRoles))
	for _, sr := range builtinRoles {
		existing := new(models.Role)
		err := db.NewSelect().
			Model(existing).
			Where("name = ?", sr.name).
			Scan(ctx)
		if err == nil {
			ids[sr.name] = existing.ID
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up role %s: %w", sr.name, err)
		}

		role := models.Role{
			ID:          bunx.NewUUIDv7(),
			Name:        sr.name,
			Description: sr.description,
			Permissions: models.StringSlice(sr.permissions),
		}
		if sr.parent != "" {
			parentID, ok := ids[sr.parent]
			if !ok {
				return fmt.Errorf("role %s declared before its parent %s", sr.name, sr.parent)
			}
			role.ParentID = &parentID
		}
		if _, err := db.NewInsert().Model(&role).Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed role %s: %w", sr.name, err)
		}
		ids[sr.name] = role.ID
	}
	fmt.Println(" OK")

	return nil
}

// down_20250801000002 removes the built-in roles
func down_20250801000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing built-in roles...")

	// Children first so parent references never dangle.
	for i := len(builtinRoles) - 1; i >= 0; i-- {
		_, err := db.NewDelete().
			Model((*models.Role)(nil)).
			Where("name = ?", builtinRoles[i].name).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove role %s: %w", builtinRoles[i].name, err)
		}
	}
	fmt.Println(" OK")

	return nil
}
