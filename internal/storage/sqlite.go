package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the database file at path with foreign keys enforced.
// The schema must already be migrated.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	return &SQLBackend{db: db, dialect: dialectSQLite}, nil
}

// SQLiteURL is the golang-migrate database URL for a sqlite file.
func SQLiteURL(path string) string {
	return "sqlite://" + path
}
