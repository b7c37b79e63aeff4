package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents a human principal. Users are disabled rather than
// deleted so historic assignments and audit trails keep resolving.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             string    `bun:"id,pk,type:uuid"`
	Username       string    `bun:"username,notnull,unique"`
	Email          *string   `bun:"email,unique"`
	FullName       string    `bun:"full_name"`
	Phone          string    `bun:"phone"`
	HashedPassword string    `bun:"hashed_password,notnull"`
	Disabled       bool      `bun:"disabled,notnull,default:false"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
	Metadata       Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
}

// EmailOrEmpty returns the email address, or "" when none is registered.
func (u *User) EmailOrEmpty() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}
