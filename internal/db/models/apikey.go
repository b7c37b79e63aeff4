package models

import (
	"time"

	"github.com/uptrace/bun"
)

// APIKey is a non-interactive principal scoped to a single resource.
// Only the PBKDF2 hash is stored; the plaintext is returned once at
// creation. Prefix (first eight characters of the secret) is the sole
// lookup index for presented keys.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	ID         string     `bun:"id,pk,type:uuid"`
	UserID     string     `bun:"user_id,notnull,type:uuid"` // creator
	ResourceID string     `bun:"resource_id,notnull"`       // scope of the key
	Name       string     `bun:"name"`
	Prefix     string     `bun:"prefix,notnull"`
	Salt       string     `bun:"salt,notnull"`
	HashedKey  string     `bun:"hashed_key,notnull"`
	Decorator  string     `bun:"decorator,notnull"`
	ExpiresAt  *time.Time `bun:"expires_at"`
	Disabled   bool       `bun:"disabled,notnull,default:false"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// IsExpired reports whether the key has an expiry in the past.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
