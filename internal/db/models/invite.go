package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Invite is a short-lived token that grants membership plus a baseline
// role on acceptance. Deleted on acceptance; must survive any partial
// acceptance failure so the invitee can retry.
type Invite struct {
	bun.BaseModel `bun:"table:invites,alias:inv"`

	ID             string    `bun:"id,pk,type:uuid"`
	ResourceID     string    `bun:"resource_id,notnull"`
	Email          string    `bun:"email,notnull"`
	InvitedBy      string    `bun:"invited_by,notnull,type:uuid"`
	TemporaryToken string    `bun:"temporary_token,notnull,unique"`
	ExpiresAt      time.Time `bun:"expires_at,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	Metadata       Metadata  `bun:"metadata,type:jsonb,notnull,default:'{}'"`
}

// IsExpired reports whether the invite is past its lifetime.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
