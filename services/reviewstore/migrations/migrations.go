// Package migrations embeds the reviewstore PostgreSQL schema.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql migration files.
//
//go:embed *.sql
var FS embed.FS
