package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RevokedJTI blacklists a JWT by its jti claim until the token would have
// expired anyway. Rows past Exp are garbage collected.
type RevokedJTI struct {
	bun.BaseModel `bun:"table:revoked_jti,alias:rjti"`

	JTI       string    `bun:"jti,pk"`
	Subject   string    `bun:"subject,notnull"`
	Exp       time.Time `bun:"exp,notnull"`
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"`
	RevokedBy *string   `bun:"revoked_by"`
}
