package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Organization is a first-level tenancy node under the platform root.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull,unique"`
	DisplayName string    `bun:"display_name"`
	Disabled    bool      `bun:"disabled,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
	Metadata    Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
}

// Project is a second-level tenancy node owned by an organization.
// Permission evaluation walks project → organization → platform.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`

	ID             string    `bun:"id,pk,type:uuid"`
	OrganizationID string    `bun:"organization_id,notnull,type:uuid"`
	Name           string    `bun:"name,notnull"`
	DisplayName    string    `bun:"display_name"`
	Disabled       bool      `bun:"disabled,notnull,default:false"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
	Metadata       Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
}

// Member records a user's membership of a tenancy node. One table serves
// both organizations and projects; ResourceID names the node. Unique over
// (resource_id, user_id).
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID         string    `bun:"id,pk,type:uuid"`
	ResourceID string    `bun:"resource_id,notnull"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	JoinedAt   time.Time `bun:"joined_at,notnull,default:current_timestamp"`
	Disabled   bool      `bun:"disabled,notnull,default:false"`
	Metadata   Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
}
