package migrations

import "embed"

// FS contains embedded SQLite migrations for the plan catalog.
//
//go:embed *.sql
var FS embed.FS
