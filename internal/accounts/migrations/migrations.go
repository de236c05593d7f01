// Package migrations embeds the Account/LoginAttempt schema for goose to
// apply at startup (§4.13), mirroring the teacher's embedded migrations.FS
// convention.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
