// Package migrations embeds SQL migration files for each supported dialect.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time,
// under one directory per dialect.
//
//go:embed sqlite/*.sql mysql/*.sql
var FS embed.FS
