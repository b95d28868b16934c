package migrations

import "embed"

// FS carries the schema migrations inside the binary, so a fresh install
// needs nothing but the executable and a database URL.
//
//go:embed *.sql
var FS embed.FS
