// Package migrations registers the schema migrations applied to a fresh or
// upgrading crawler database, in the order they must run.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every registered schema migration.
var Migrations = migrate.NewMigrations() //nolint:gochecknoglobals
