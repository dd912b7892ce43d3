// Package migrations bundles the subscription store schema per driver.
package migrations

import "embed"

// Schema files are compiled into the binary, one directory per driver.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
