package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Session backs the browser console. It pins a snapshot of the user and
// the token pair minted at login; a mismatch between the two at resolve
// time is treated as unauthenticated.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID           string    `bun:"id,pk,type:uuid"`
	UserID       string    `bun:"user_id,notnull,type:uuid"`
	TokenHash    string    `bun:"token_hash,notnull,unique"` // SHA256 of the cookie value
	AccessToken  string    `bun:"access_token,notnull"`      // local JWT pinned to this session
	RefreshToken string    `bun:"refresh_token"`
	UserSnapshot Metadata  `bun:"user_snapshot,type:jsonb,notnull,default:'{}'"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt   time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	Revoked      bool      `bun:"revoked,notnull,default:false"`
}

// IsExpired reports whether the session is past its lifetime.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
