// Package migrations embeds the goose SQL migration files so the binary
// carries its own schema and never depends on a migrations directory being
// present on disk at deploy time.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
