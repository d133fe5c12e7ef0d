package migrations

import "embed"

// FS contains embedded SQLite migrations for conversation storage.
//
//go:embed *.sql
var FS embed.FS
