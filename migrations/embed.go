// Package migrations ships the schema as embedded SQL files, applied on
// startup by storage.RunMigrations.
package migrations

import "embed"

// FS holds every .sql file in this directory, ordered by filename.
//
//go:embed *.sql
var FS embed.FS
