package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary keys.
//
// UUIDv7 keeps primary-key indexes append-mostly on both PostgreSQL and
// SQLite and needs no gen_random_uuid() support from the engine. Generation
// failure only occurs on entropy exhaustion, at which point nothing else in
// the process can operate safely either, so this panics rather than
// returning an error.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
