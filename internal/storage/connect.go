package storage

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/claude/spotter/internal/config"
)

// Migrate applies the migrations for cfg's driver from fsys, which holds
// one directory per driver under migrations/.
func Migrate(cfg config.StorageConfig, fsys fs.FS) error {
	switch cfg.Driver {
	case "postgres":
		return RunMigrations(cfg.Postgres.DSN(), fsys, "migrations/postgres")
	case "sqlite":
		return RunMigrations(SQLiteURL(cfg.Path), fsys, "migrations/sqlite")
	}
	return fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// Connect opens the configured backend and loads it into an arena.
// The schema must already be migrated.
func Connect(ctx context.Context, cfg config.StorageConfig) (*Arena, error) {
	var (
		b   *SQLBackend
		err error
	)
	switch cfg.Driver {
	case "postgres":
		b, err = OpenPostgres(ctx, cfg.Postgres.DSN())
	case "sqlite":
		b, err = OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	a, err := Open(ctx, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	return a, nil
}
