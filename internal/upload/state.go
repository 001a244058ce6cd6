package upload

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/spotter/internal/ingest"
	_ "modernc.org/sqlite"
)

const exportsSchema = `CREATE TABLE IF NOT EXISTS sent_exports (
	content_hash      TEXT PRIMARY KEY,
	path              TEXT NOT NULL,
	size              INTEGER NOT NULL,
	sessions_inserted INTEGER NOT NULL,
	sessions_skipped  INTEGER NOT NULL,
	sets_inserted     INTEGER NOT NULL,
	sent_at           TIMESTAMP NOT NULL
)`

// Export is one CSV export the server accepted, with what the import made of it.
type Export struct {
	Hash             string
	Path             string
	Size             int64
	SessionsInserted int
	SessionsSkipped  int
	SetsInserted     int
	SentAt           time.Time
}

// StateDB remembers which exports the server has imported. Exports are keyed
// by content, so a renamed or copied file is not sent again while an edited
// one is.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) dir/exports.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "exports.db"))
	if err != nil {
		return nil, fmt.Errorf("opening export state: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(exportsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating export state table: %w", err)
	}
	return &StateDB{db: db}, nil
}

// Sent reports whether an export with this content hash was already imported.
func (s *StateDB) Sent(ctx context.Context, hash string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sent_exports WHERE content_hash = ?`, hash).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up export %s: %w", hash, err)
	}
	return n > 0, nil
}

// Record stores an accepted export with the server's import counts.
func (s *StateDB) Record(ctx context.Context, e Export, r *ingest.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_exports (content_hash, path, size, sessions_inserted, sessions_skipped, sets_inserted, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (content_hash) DO UPDATE SET path = excluded.path, sent_at = excluded.sent_at`,
		e.Hash, e.Path, e.Size, r.SessionsInserted, r.SessionsSkipped, r.SetsInserted, e.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording export %s: %w", e.Path, err)
	}
	return nil
}

// History lists recorded exports, most recent first.
func (s *StateDB) History(ctx context.Context) ([]Export, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, path, size, sessions_inserted, sessions_skipped, sets_inserted, sent_at
		 FROM sent_exports ORDER BY sent_at DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("querying export history: %w", err)
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.Hash, &e.Path, &e.Size, &e.SessionsInserted, &e.SessionsSkipped, &e.SetsInserted, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scanning export history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *StateDB) Close() error {
	return s.db.Close()
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
