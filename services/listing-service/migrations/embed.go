// Package migrations содержит SQL-миграции listing-service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
