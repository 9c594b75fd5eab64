// Package migrations embeds the goose SQL migrations of the service schema.
package migrations

import "embed"

// FS contém os arquivos de migração versionados.
//
//go:embed *.sql
var FS embed.FS
