package directory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bingwamta/databot/core/logger"
)

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id             INTEGER PRIMARY KEY,
    username       TEXT NOT NULL DEFAULT '',
    first_name     TEXT NOT NULL DEFAULT '',
    last_name      TEXT NOT NULL DEFAULT '',
    joined_at      TEXT NOT NULL,
    last_active_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS users_last_active_at_idx ON users (last_active_at)`,
	`CREATE INDEX IF NOT EXISTS users_joined_at_idx ON users (joined_at)`,
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// OpenSQLite opens (creating if needed) a single-file SQLite directory.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, stmt := range append(append([]string(nil), sqlitePragmas...), sqliteSchema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare sqlite directory: %w", err)
		}
	}

	logger.DB.LogAttrs(ctx, slog.LevelInfo, "sqlite opened",
		slog.String("event", "db.connect"),
		slog.String("driver", "sqlite"),
		slog.String("path", path),
	)
	s := NewSQLStore(db)
	s.owned = true
	return s, nil
}
