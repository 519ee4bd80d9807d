package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"

	supertokensmigrations "github.com/goliatone/go-supertokens/migrations"
)

// RegisterMigrations adds the embedded outbox migrations for dialect to a
// go-persistence-bun client. Call client.Migrate afterwards to apply them.
func RegisterMigrations(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	switch dialect {
	case supertokensmigrations.DialectPostgres, supertokensmigrations.DialectSQLite:
	default:
		return fmt.Errorf("sqlstore: unsupported migration dialect %q", dialect)
	}
	_, err := supertokensmigrations.Register(ctx, func(_ context.Context, target string, _ string, fsys fs.FS) error {
		if target != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, supertokensmigrations.WithValidationTargets(dialect))
	return err
}
