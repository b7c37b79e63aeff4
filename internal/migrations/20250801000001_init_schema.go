package migrations

import (
	"context"
	"fmt"

	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250801000001, down_20250801000001)
}

// up_20250801000001 initializes the full database schema
func up_20250801000001(ctx context.Context, db *bun.DB) error {
	type table struct {
		name  string
		model any
	}
	tables := []table{
		{"users", (*models.User)(nil)},
		{"organizations", (*models.Organization)(nil)},
		{"projects", (*models.Project)(nil)},
		{"members", (*models.Member)(nil)},
		{"roles", (*models.Role)(nil)},
		{"role_assignments", (*models.RoleAssignment)(nil)},
		{"oauth_clients", (*models.OAuthClient)(nil)},
		{"oauth_authorization_codes", (*models.AuthorizationCode)(nil)},
		{"oauth_tokens", (*models.OAuth2Token)(nil)},
		{"api_keys", (*models.APIKey)(nil)},
		{"invites", (*models.Invite)(nil)},
		{"sessions", (*models.Session)(nil)},
		{"revoked_jti", (*models.RevokedJTI)(nil)},
	}

	for _, t := range tables {
		fmt.Printf(" [up] creating %s table...", t.name)
		q := db.NewCreateTable().
			Model(t.model).
			IfNotExists()

		// For SQLite, define FKs during table creation
		if IsSQLite(db) {
			switch t.name {
			case "projects":
				q = q.ForeignKey(`(organization_id) REFERENCES organizations(id) ON DELETE CASCADE`)
			case "role_assignments":
				q = q.ForeignKey(`(role_id) REFERENCES roles(id) ON DELETE CASCADE`)
			case "api_keys":
				q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
			case "sessions":
				q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
			}
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		fmt.Println(" OK")
	}

	fmt.Print(" [up] creating indexes...")
	indexes := []string{
		// uniqueness the models cannot express across columns
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_members_resource_user ON members(resource_id, user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_role_assignments_target_role_resource ON role_assignments(target_id, role_id, resource_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_org_name ON projects(organization_id, name)`,

		// lookup paths
		`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(prefix)`,
		`CREATE INDEX IF NOT EXISTS idx_role_assignments_target ON role_assignments(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_role_assignments_resource ON role_assignments(resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_tokens_user ON oauth_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_resource_email ON invites(resource_id, email)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_revoked_jti_exp ON revoked_jti(exp)`,

		// cursor pagination over (created_at, id)
		`CREATE INDEX IF NOT EXISTS idx_users_created_at_id ON users(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_organizations_created_at_id ON organizations(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_created_at_id ON projects(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_created_at_id ON api_keys(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_clients_created_at_id ON oauth_clients(created_at, id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20250801000001 drops all tables in reverse dependency order
func down_20250801000001(ctx context.Context, db *bun.DB) error {
	drop := []any{
		(*models.RevokedJTI)(nil),
		(*models.Session)(nil),
		(*models.Invite)(nil),
		(*models.APIKey)(nil),
		(*models.OAuth2Token)(nil),
		(*models.AuthorizationCode)(nil),
		(*models.OAuthClient)(nil),
		(*models.RoleAssignment)(nil),
		(*models.Role)(nil),
		(*models.Member)(nil),
		(*models.Project)(nil),
		(*models.Organization)(nil),
		(*models.User)(nil),
	}
	for _, m := range drop {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}
