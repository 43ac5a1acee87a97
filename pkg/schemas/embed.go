package schemas

import "embed"

// SchemasFS - JSON-схемы событий шины и атрибутов объявлений по категориям.
//
//go:embed events listings
var SchemasFS embed.FS
