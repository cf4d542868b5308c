package migrations

import "embed"

// FS embeds the SQL migrations applied by the migrate command and the
// postgres storage driver on startup.
//
//go:embed *.sql
var FS embed.FS
