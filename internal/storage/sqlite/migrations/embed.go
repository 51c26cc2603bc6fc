// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

// FS holds the reaction schema under the "reactions" root.
//
//go:embed reactions/*.sql
var FS embed.FS
