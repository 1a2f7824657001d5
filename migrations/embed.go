// Package migrations embeds the Postgres schema used by the postgres store
// backend and the event outbox.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
