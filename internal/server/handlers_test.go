package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/spotter/internal/config"
	"github.com/claude/spotter/internal/ingest/alpha"
	"github.com/claude/spotter/internal/metrics"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

var wednesday = time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *storage.Arena) {
	t.Helper()
	a := storage.NewArena()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	training := config.Default().Training
	training.Timezone = "UTC"
	clock := func() time.Time { return wednesday }
	s := New(a, training, alpha.NewProvider(a, log, clock), metrics.NewForTest(), testAPIKey, log)
	s.now = clock
	return s, a
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createPlan(t *testing.T, s *Server) *models.TrainingPlan {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/plans", map[string]any{
		"name":          "Full Body",
		"days_per_week": 2,
		"days": []map[string]any{
			{"name": "A", "exercises": []map[string]any{
				{"name": "Back Squat", "sets": 2, "reps": "5"},
				{"name": "Bench Press", "sets": 1, "reps": "5"},
			}},
			{"name": "B", "exercises": []map[string]any{
				{"name": "Deadlift", "sets": 1, "reps": "5"},
			}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plan status = %d: %s", rec.Code, rec.Body)
	}
	return decode[*models.TrainingPlan](t, rec)
}

// TestTodayWithoutPlan verifies that /today reports no next day before any
// plan exists.
func TestTodayWithoutPlan(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/today", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["next_day"] != nil || got["plan"] != nil {
		t.Errorf("today = %v, want no plan and no next day", got)
	}
}

// TestPlannedWorkoutFlow walks a planned workout from start to completion and
// checks that the rotation moves on to the next day.
func TestPlannedWorkoutFlow(t *testing.T) {
	s, a := newTestServer(t)
	plan := createPlan(t, s)

	today := decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/today", nil))
	next := today["next_day"].(map[string]any)
	if next["name"] != "A" {
		t.Fatalf("next day = %v, want A", next["name"])
	}

	dayA := plan.SortedDays()[0]
	rec := do(t, s, http.MethodPost, "/api/v1/workout", map[string]any{"plan_day_id": dayA.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	snap := decode[map[string]any](t, rec)
	if snap["mode"] != "planned" || snap["exercise"] != "Back Squat" {
		t.Fatalf("snapshot = %v", snap)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/workout", nil); rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", rec.Code)
	}

	for range 3 {
		rec := do(t, s, http.MethodPost, "/api/v1/workout/sets", map[string]any{"weight": 225, "reps": 5})
		if rec.Code != http.StatusOK {
			t.Fatalf("log set status = %d: %s", rec.Code, rec.Body)
		}
	}
	snap = decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/workout", nil))
	if snap["phase"] != "plan_exhausted" {
		t.Fatalf("phase = %v, want plan_exhausted", snap["phase"])
	}

	// Logging once the plan is exhausted is a no-op.
	rec = do(t, s, http.MethodPost, "/api/v1/workout/sets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-op log status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["set"] != nil {
		t.Errorf("no-op log returned set %v", got["set"])
	}

	rec = do(t, s, http.MethodPost, "/api/v1/workout/finish", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d: %s", rec.Code, rec.Body)
	}
	sessionID := decode[map[string]any](t, rec)["session_id"].(string)

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/"+sessionID+"/complete", map[string]any{
		"rpe": 4, "pain_tags": []string{"Knees"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", rec.Code, rec.Body)
	}
	done := decode[map[string]any](t, rec)
	if done["completed"] != true || done["volume"].(float64) != 225*5*3 || done["exercise_count"].(float64) != 2 {
		t.Errorf("completed session = %v", done)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/workout", nil); rec.Code != http.StatusNotFound {
		t.Errorf("workout after completion status = %d, want 404", rec.Code)
	}

	today = decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/today", nil))
	if next := today["next_day"].(map[string]any); next["name"] != "B" {
		t.Errorf("next day after A = %v, want B", next["name"])
	}
	if n := len(a.Exercises(storage.ExerciseFilter{})); n != 2 {
		t.Errorf("resolved exercises = %d, want 2", n)
	}
}

// TestQuickWorkout verifies quick mode: exercises are picked from the library
// and finishing with no sets is refused.
func TestQuickWorkout(t *testing.T) {
	s, a := newTestServer(t)
	row := models.NewExercise("Cable Row", wednesday)
	a.Insert(row)

	if rec := do(t, s, http.MethodPost, "/api/v1/workout", nil); rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/workout/finish", nil); rec.Code != http.StatusConflict {
		t.Errorf("empty finish status = %d, want 409", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/workout/exercises", map[string]any{"name": "Nope"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exercise status = %d, want 404", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/v1/workout/exercises", map[string]any{"exercise_id": row.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("add exercise status = %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/workout/stepper", map[string]any{"action": "increase_weight"})
	if got := decode[map[string]any](t, rec); got["weight"].(float64) != 140 {
		t.Errorf("stepper weight = %v, want 140", got["weight"])
	}
	rec = do(t, s, http.MethodPost, "/api/v1/workout/sets", nil)
	logged := decode[map[string]any](t, rec)
	set := logged["set"].(map[string]any)
	if set["weight"].(float64) != 140 || set["reps"].(float64) != 5 || set["unit"] != "lbs" {
		t.Errorf("logged set = %v, want stepper values", set)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/workout/sets", map[string]any{"weight": -5}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative weight status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/workout/finish", nil); rec.Code != http.StatusOK {
		t.Errorf("finish status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/workout/next", nil); rec.Code != http.StatusConflict {
		t.Errorf("navigate after finish status = %d, want 409", rec.Code)
	}
}

// TestDiscardWorkout verifies that discarding removes the session entirely.
func TestDiscardWorkout(t *testing.T) {
	s, a := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/workout", nil)
	if rec := do(t, s, http.MethodDelete, "/api/v1/workout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("discard status = %d", rec.Code)
	}
	if n := len(a.Sessions(storage.SessionQuery{})); n != 0 {
		t.Errorf("sessions = %d, want 0", n)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/workout", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second discard status = %d, want 404", rec.Code)
	}
}

// TestValidationRejections verifies that invalid input maps to 400.
func TestValidationRejections(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"exercise without name", "/api/v1/exercises", map[string]any{"name": "  "}},
		{"plan without days", "/api/v1/plans", map[string]any{"name": "Empty", "days_per_week": 3}},
		{"plan with 8 days per week", "/api/v1/plans", map[string]any{"name": "Too many", "days_per_week": 8,
			"days": []map[string]any{{"name": "A"}}}},
		{"malformed json", "/api/v1/plans", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if raw, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(raw))
				rec = httptest.NewRecorder()
				s.ServeHTTP(rec, req)
			} else {
				rec = do(t, s, http.MethodPost, tt.path, tt.body)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
}

// TestCompleteRejectsUnfinished verifies feedback cannot be recorded on a
// session that was never finished.
func TestCompleteRejectsUnfinished(t *testing.T) {
	s, _ := newTestServer(t)
	snap := decode[map[string]any](t, do(t, s, http.MethodPost, "/api/v1/workout", nil))
	rec := do(t, s, http.MethodPost, "/api/v1/sessions/"+snap["session_id"].(string)+"/complete", map[string]any{"rpe": 3})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/api/v1/sessions/"+uuid.NewString()+"/complete", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

// TestExerciseLibrary verifies custom exercise creation, grouping and deletion.
func TestExerciseLibrary(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/exercises", map[string]any{
		"name": "Landmine Press", "muscle_groups": "Shoulders, Chest", "modality": "barbell",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	ex := decode[*models.Exercise](t, rec)
	if !ex.IsCustom || len(ex.MuscleGroups) != 2 {
		t.Errorf("exercise = %+v", ex)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/exercises", map[string]any{"name": "Landmine Press"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	groups := decode[[]map[string]any](t, do(t, s, http.MethodGet, "/api/v1/exercises?grouped=true", nil))
	if len(groups) != 1 || groups[0]["label"] != "Barbell" {
		t.Errorf("groups = %v", groups)
	}

	if rec := do(t, s, http.MethodDelete, "/api/v1/exercises/"+ex.ID.String(), nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/exercises/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

// TestTrends verifies the weekly volume, consistency and e1RM endpoints.
func TestTrends(t *testing.T) {
	s, a := newTestServer(t)
	bench := models.NewExercise("Bench Press", wednesday)
	a.Insert(bench)
	sess := models.NewSession(wednesday.Add(-2*time.Hour), "")
	a.Insert(sess)
	benchID, sessID := bench.ID, sess.ID
	a.Insert(&models.SetEntry{ID: uuid.New(), ExerciseID: &benchID, SessionID: &sessID, Weight: 100, Reps: 5, Unit: models.Pounds, Timestamp: sess.Date})

	vol := decode[[]map[string]any](t, do(t, s, http.MethodGet, "/api/v1/trends/weekly-volume?weeks=4", nil))
	if len(vol) != 4 || vol[3]["volume"].(float64) != 500 || vol[0]["volume"].(float64) != 0 {
		t.Errorf("weekly volume = %v, want [0 0 0 500]", vol)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/trends/weekly-volume?weeks=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("weeks=0 status = %d, want 400", rec.Code)
	}

	cons := decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/trends/consistency", nil))
	if cons["active_days"].(float64) != 1 {
		t.Errorf("consistency = %v", cons)
	}

	e1rm := decode[map[string]any](t, do(t, s, http.MethodGet, "/api/v1/trends/e1rm?exercise=Bench%20Press", nil))
	if best := e1rm["best"].(float64); best < 116.66 || best > 116.67 {
		t.Errorf("best e1rm = %v, want 116.67", best)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/trends/e1rm?exercise=Curl", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exercise status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/trends/e1rm?exercise=Bench%20Press&formula=lander", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown formula status = %d, want 400", rec.Code)
	}
}

// TestAlphaImportRequiresKey verifies the import endpoint is behind the API key
// and creates sessions when authorised.
func TestAlphaImportRequiresKey(t *testing.T) {
	s, a := newTestServer(t)
	csv := "\"Push\";\"2025-03-10 6:30 h\";\"0:45 hr\"\n\"1. Bench Press · Barbell · 5 reps\"\n#;KG;REPS;RIR\n1;80;5;2\n"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/alpha", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/import/alpha", strings.NewReader(csv))
	req.Header.Set("X-API-Key", testAPIKey)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]any](t, rec); got["sessions_inserted"].(float64) != 1 {
		t.Errorf("result = %v", got)
	}
	if n := len(a.Sessions(storage.SessionQuery{CompletedOnly: true})); n != 1 {
		t.Errorf("completed sessions = %d, want 1", n)
	}
}

// TestMetricsEndpoint verifies request counters are exposed for scraping.
func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodGet, "/api/v1/today", nil)
	rec := do(t, s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `spotter_http_requests_total{method="GET",route="/api/v1/today",status="200"} 1`) {
		t.Errorf("metrics output missing today counter:\n%s", rec.Body)
	}
}
