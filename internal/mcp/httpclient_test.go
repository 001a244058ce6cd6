package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/spotter/internal/analytics"
	"github.com/claude/spotter/internal/trends"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestHTTPClientWeeklyVolume verifies the weeks param and array decoding.
func TestHTTPClientWeeklyVolume(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/trends/weekly-volume": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("weeks"); got != "4" {
				t.Errorf("weeks=%q, want 4", got)
			}
			writeTestJSON(t, w, []analytics.WeekVolume{
				{WeekStart: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), Volume: 1500, Sessions: 2},
			})
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL).WeeklyVolume(context.Background(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Volume != 1500 || got[0].Sessions != 2 {
		t.Errorf("weeks = %+v", got)
	}
}

// TestHTTPClientE1RM verifies exercise and formula params.
func TestHTTPClientE1RM(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/trends/e1rm": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("exercise") != "Bench Press" || q.Get("formula") != "brzycki" {
				t.Errorf("query = %v", q)
			}
			best := 225.0
			writeTestJSON(t, w, trends.E1RMReport{Exercise: "Bench Press", Formula: "brzycki", Best: &best})
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL+"/").E1RM(context.Background(), "Bench Press", "brzycki")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Best == nil || *got.Best != 225 {
		t.Errorf("report = %+v", got)
	}
}

// TestHTTPClientSessions verifies filter params are encoded.
func TestHTTPClientSessions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("start") != "2025-03-01T00:00:00Z" {
				t.Errorf("start=%q", q.Get("start"))
			}
			if q.Get("end") != "" {
				t.Errorf("end=%q, want unset", q.Get("end"))
			}
			if q.Get("completed") != "true" || q.Get("limit") != "5" {
				t.Errorf("query = %v", q)
			}
			writeTestJSON(t, w, []map[string]any{{"volume": 900, "exercise_count": 2, "completed": true}})
		},
	})
	defer ts.Close()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := NewHTTPClient(ts.URL).Sessions(context.Background(), SessionFilter{Start: &start, CompletedOnly: true, Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Volume != 900 || !got[0].Completed {
		t.Errorf("sessions = %+v", got)
	}
}

// TestHTTPClientAPIError verifies the error body is surfaced.
func TestHTTPClientAPIError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/trends/e1rm": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"unknown exercise"}`))
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).E1RM(context.Background(), "Curl", "")
	if err == nil || !strings.Contains(err.Error(), "404: unknown exercise") {
		t.Errorf("err = %v, want the API error", err)
	}
}

// TestHTTPClientToday verifies today decoding when no plan is active.
func TestHTTPClientToday(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/today": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{"plan": nil, "next_day": nil, "last_session_volume": 1200.5})
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL).Today(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NextDay != nil || got.LastSessionVolume != 1200.5 {
		t.Errorf("today = %+v", got)
	}
}
