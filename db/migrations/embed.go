// Package migrations contains embedded SQL migration files for database schema management.
//
// Table names are written as {{prefix}}documents / {{prefix}}blocks; the migrator
// substitutes the environment's table prefix before applying them.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
