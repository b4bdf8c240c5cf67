// Package migrations embeds the Postgres schema so binaries do not depend on the
// working directory.
package migrations

import "embed"

// Files holds every *.sql migration, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS
