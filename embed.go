// Package domainwatch holds assets shared by the binaries, such as the SQL
// migrations applied by "domainwatch migrate".
package domainwatch

import "embed"

// Migrations contains the goose migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
