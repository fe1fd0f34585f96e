// Package migrations embeds the tasks schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
