// Package migrations embeds the numbered SQL files applied by `icusim migrate`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
