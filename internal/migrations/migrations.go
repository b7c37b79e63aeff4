// Package migrations holds the bun migration registry. Each migration
// file registers itself via init; cmd/db drives the migrator over this
// collection.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
