// Package migrations holds the numbered schema files for the local cache
// database. Files are named NNN_description.up.sql and applied in order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
