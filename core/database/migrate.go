package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/bingwamta/databot/core/logger"
)

const readyTimeout = 30 * time.Second

// RunMigrations applies every pending up migration found in src.
func RunMigrations(ctx context.Context, cfg Config, src fs.FS) error {
	if err := WaitReady(ctx, cfg, readyTimeout); err != nil {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "db not ready",
			slog.String("event", "db.migrate"),
			logger.Err(err),
		)
		return err
	}

	files := listMigrationFiles(src)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrations resolved",
		slog.String("event", "resolve"),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URL())
	if err != nil {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "init failed",
			slog.String("event", "db.migrate"),
			logger.Err(err),
		)
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.MIG.LogAttrs(ctx, slog.LevelWarn, "close failed",
				slog.String("event", "db.migrate"),
				logger.Err(err),
			)
		}
	}()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "migration failed",
			slog.String("event", "apply"),
			slog.Duration("duration", took),
			logger.Err(upErr),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		preview, truncated := logger.SummarizeStrings(applied, 6)
		logger.MIG.LogAttrs(ctx, slog.LevelDebug, "applied files",
			slog.String("event", "apply"),
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", preview),
			slog.Bool("files_truncated", truncated),
		)
	}
	logger.MIG.LogAttrs(ctx, slog.LevelInfo, "migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func listMigrationFiles(src fs.FS) []string {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
