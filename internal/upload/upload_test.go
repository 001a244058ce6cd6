package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/spotter/internal/ingest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(url string) *Client {
	c := NewClient(url+"/", "secret")
	c.backoff = time.Millisecond
	return c
}

// TestUploaderSkipsUploadedFiles verifies that only CSV files are sent, the
// API key is attached, and a second run skips unchanged files.
func TestUploaderSkipsUploadedFiles(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/import/alpha" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("missing api key")
		}
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(ingest.Result{SessionsInserted: 1, SetsInserted: 4})
	}))
	defer ts.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2025-03.csv"), "march")
	writeFile(t, filepath.Join(dir, "old", "2025-02.CSV"), "february")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignore me")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(newTestClient(ts.URL), state, dir, false, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 || stats.SetsInserted != 8 {
		t.Errorf("first run = %+v", stats)
	}

	writeFile(t, filepath.Join(dir, "2025-03.csv"), "march, extended")
	stats, err = New(newTestClient(ts.URL), state, dir, false, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || stats.FilesSkipped != 1 {
		t.Errorf("second run = %+v, want the changed file only", stats)
	}
	if calls.Load() != 3 {
		t.Errorf("requests = %d, want 3", calls.Load())
	}
}

// TestDryRunSendsNothing verifies dry-run mode neither posts nor marks files.
func TestDryRunSendsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "x")
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(nil, state, dir, true, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 0 || stats.FilesErrored != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if sent, _ := state.Sent(context.Background(), hashBytes([]byte("x"))); sent {
		t.Error("dry run recorded the file as imported")
	}
}

// TestHistoryRecordsImportCounts verifies each accepted export is stored with
// the server's counts and a copy of an imported file is not sent again.
func TestHistoryRecordsImportCounts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		_ = json.NewEncoder(w).Encode(ingest.Result{
			SessionsInserted: int(n), SessionsSkipped: 2, SetsInserted: 10 * int(n),
		})
	}))
	defer ts.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "january")
	writeFile(t, filepath.Join(dir, "b.csv"), "february")
	writeFile(t, filepath.Join(dir, "copy", "b.csv"), "february")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	u := New(newTestClient(ts.URL), state, dir, false, discardLogger())
	u.now = func() time.Time {
		base = base.Add(time.Minute)
		return base
	}
	stats, err := u.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 2 || stats.FilesSkipped != 1 {
		t.Errorf("stats = %+v, want the copy skipped", stats)
	}

	exports, err := state.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(exports) != 2 {
		t.Fatalf("history = %+v", exports)
	}
	newest := exports[0]
	if newest.Path != "b.csv" || newest.SessionsInserted != 2 || newest.SessionsSkipped != 2 || newest.SetsInserted != 20 {
		t.Errorf("newest = %+v", newest)
	}
	if newest.Size != int64(len("february")) || !newest.SentAt.Equal(base) {
		t.Errorf("newest size/time = %d %v, want %d %v", newest.Size, newest.SentAt, len("february"), base)
	}
	if exports[1].Path != "a.csv" || exports[1].SetsInserted != 10 {
		t.Errorf("oldest = %+v", exports[1])
	}
}

// TestSendCSVRetries verifies server errors are retried and client errors are not.
func TestSendCSVRetries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{"recovers after 5xx", []int{500, 502, 200}, 3, false},
		{"gives up after 3", []int{500, 500, 500}, 3, true},
		{"no retry on 4xx", []int{403}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
				_, _ = w.Write([]byte(`{"sessions_inserted":2}`))
			}))
			defer ts.Close()

			result, err := newTestClient(ts.URL).SendCSV(context.Background(), []byte("csv"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if !tt.wantErr && result.SessionsInserted != 2 {
				t.Errorf("result = %+v", result)
			}
		})
	}
}
