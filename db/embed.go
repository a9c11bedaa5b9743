// Package db embeds the schema migrations so a single binary can bring a
// fresh database up to date.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
