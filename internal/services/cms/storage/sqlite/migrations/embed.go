package migrations

import "embed"

// FS contains embedded SQLite migrations for CMS storage.
//
//go:embed *.sql
var FS embed.FS
