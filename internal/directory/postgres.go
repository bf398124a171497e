package directory

import (
	"context"
	"io/fs"

	"github.com/bingwamta/databot/core/database"
)

// OpenPostgres connects to PostgreSQL, applies the schema migrations in
// migrations and returns a store that owns the pool.
func OpenPostgres(ctx context.Context, cfg database.Config, migrations fs.FS) (*SQLStore, error) {
	if err := database.RunMigrations(ctx, cfg, migrations); err != nil {
		return nil, err
	}
	return ConnectPostgres(ctx, cfg)
}

// ConnectPostgres connects to an already migrated database without touching
// the schema.
func ConnectPostgres(ctx context.Context, cfg database.Config) (*SQLStore, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewSQLStore(db)
	s.owned = true
	return s, nil
}
