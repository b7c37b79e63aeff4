package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role carries a permission set and an optional parent edge. The parent
// edges form a DAG rooted at the platform roles; cycle checks run before
// any write that sets ParentID. Disabled roles still appear in expansion
// but contribute no permissions.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string      `bun:"id,pk,type:uuid"`
	Name        string      `bun:"name,notnull,unique"`
	Description string      `bun:"description"`
	Permissions StringSlice `bun:"permissions,type:jsonb,notnull,default:'[]'"`
	ParentID    *string     `bun:"parent_id,type:uuid"`
	Disabled    bool        `bun:"disabled,notnull,default:false"`
	CreatedAt   time.Time   `bun:"created_at,notnull,default:current_timestamp"`
}

// RoleAssignment binds a principal (user or API key) to a role at a
// resource scope. Unique over (target_id, role_id, resource_id).
type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments,alias:ra"`

	ID         string    `bun:"id,pk,type:uuid"`
	TargetID   string    `bun:"target_id,notnull"` // users.id or api_keys.id
	RoleID     string    `bun:"role_id,notnull,type:uuid"`
	ResourceID string    `bun:"resource_id,notnull"` // org, project, or platform
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
	AssignedBy string    `bun:"assigned_by"`
}
