// Package migrations содержит SQL-миграции схемы базы данных.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
