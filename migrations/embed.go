// Package migrations embeds the versioned SQL schema so binaries can migrate
// without shipping a migrations directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
