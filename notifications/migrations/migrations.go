// Package migrations embeds the notifications schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
