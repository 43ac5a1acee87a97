// Package migrations содержит SQL-миграции messaging-service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
