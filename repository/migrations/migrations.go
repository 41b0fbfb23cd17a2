// Package migrations holds the schema migrations for the principal store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered migration set applied by repository.Migrate.
var Migrations = migrate.NewMigrations()
