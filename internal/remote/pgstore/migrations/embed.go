// Package migrations embeds the schema of the postgres remote store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
