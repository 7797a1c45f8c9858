// Package migrations provides embedded SQL migrations for Goose, one
// directory per storage dialect.
package migrations

import "embed"

// FS embeds all .sql migration files in the dialect directories.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the migration directory for a goose dialect name.
func Dir(dialect string) string {
	if dialect == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
