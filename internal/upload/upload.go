package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsInserted int
	SessionsSkipped  int
	SetsInserted     int
}

// Uploader walks an export directory and POSTs every CSV whose content the
// server has not imported yet.
type Uploader struct {
	client *Client
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	now    func() time.Time
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
		now:    time.Now,
	}
}

// Run uploads pending files in path order. A file that fails is counted
// and left unmarked so the next run retries it.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := findCSVFiles(u.dir)
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, path); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "file", path, "error", err)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	rel, err := filepath.Rel(u.dir, path)
	if err != nil {
		rel = path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	hash := hashBytes(data)

	sent, err := u.state.Sent(ctx, hash)
	if err != nil {
		return err
	}
	if sent {
		u.stats.FilesSkipped++
		u.log.Debug("already imported", "file", rel)
		return nil
	}

	if u.dryRun {
		u.log.Info("would upload", "file", rel, "bytes", len(data))
		return nil
	}

	result, err := u.client.SendCSV(ctx, data)
	if err != nil {
		return err
	}
	export := Export{Hash: hash, Path: rel, Size: int64(len(data)), SentAt: u.now()}
	if err := u.state.Record(ctx, export, result); err != nil {
		return err
	}

	u.stats.FilesUploaded++
	u.stats.SessionsInserted += result.SessionsInserted
	u.stats.SessionsSkipped += result.SessionsSkipped
	u.stats.SetsInserted += result.SetsInserted
	u.log.Info("uploaded", "file", rel,
		"sessions_inserted", result.SessionsInserted,
		"sessions_skipped", result.SessionsSkipped,
		"sets_inserted", result.SetsInserted)
	return nil
}

func findCSVFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
