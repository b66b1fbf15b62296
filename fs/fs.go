// Package appfs embeds the files the binaries need at runtime: SQL migrations, email
// templates and the API description.
package appfs

import "embed"

//go:embed all:migrations all:assets
var FS embed.FS

const (
	EmailTemplatesDir = "assets/templates/email"
	OpenAPIPath       = "assets/docs/openapi.yaml"
	CommonPasswords   = "assets/common-passwords.txt"
)

// MigrationsDir returns the migrations directory for a database engine.
func MigrationsDir(engine string) string {
	switch engine {
	case "sqlite", "sqlite3":
		return "migrations/sqlite"
	default:
		return "migrations/postgres"
	}
}
