package supertokens

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the email outbox schema. Postgres files sit at the root
// of data/sql/migrations and the SQLite variants under sqlite/.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

func GetMigrationsFS() fs.FS {
	return migrationsFS
}
