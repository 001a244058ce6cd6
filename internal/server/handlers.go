package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/spotter/internal/library"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/plans"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/trends"
	"github.com/claude/spotter/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	errNoWorkout     = errors.New("no workout in progress")
	errWorkoutActive = errors.New("a workout is already in progress")
	errNotFound      = errors.New("not found")
)

type todayResponse struct {
	trends.TodayReport
	WorkoutInProgress bool `json:"workout_in_progress"`
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := todayResponse{TodayReport: trends.Today(s.gw)}
	resp.WorkoutInProgress = s.workout != nil && s.workout.Phase() != workout.Finished
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	f := storage.ExerciseFilter{
		Search:     q.Get("search"),
		CustomOnly: q.Get("custom") == "true",
	}
	if m := q.Get("modality"); m != "" {
		f.Modality = models.ParseModality(m)
	}
	exercises := s.gw.Exercises(f)
	if q.Get("grouped") == "true" {
		writeJSON(w, http.StatusOK, library.GroupByModality(exercises))
		return
	}
	if exercises == nil {
		exercises = []*models.Exercise{}
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var in library.CustomExercise
	if !decodeJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(in.Name)
	if existing := s.gw.Exercises(storage.ExerciseFilter{Name: name}); name != "" && len(existing) > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("exercise %q already exists", name)})
		return
	}
	ex, err := library.CreateCustom(r.Context(), s.gw, in, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ex, found := s.gw.Exercise(id)
	if !found {
		s.writeError(w, fmt.Errorf("exercise %s: %w", id, errNotFound))
		return
	}
	s.gw.Delete(ex)
	if err := s.gw.Save(r.Context()); err != nil {
		s.gw.Rollback()
		s.writeError(w, fmt.Errorf("deleting exercise: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.gw.Plans(storage.PlanFilter{ActiveOnly: r.URL.Query().Get("active") == "true"})
	if list == nil {
		list = []*models.TrainingPlan{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var draft plans.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan := draft.Build(s.now())
	if err := plans.Save(r.Context(), s.gw, plan); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleActivatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, found := s.gw.Plan(id)
	if !found {
		s.writeError(w, fmt.Errorf("plan %s: %w", id, errNotFound))
		return
	}
	if err := plans.Activate(r.Context(), s.gw, plan); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, found := s.gw.Plan(id)
	if !found {
		s.writeError(w, fmt.Errorf("plan %s: %w", id, errNotFound))
		return
	}
	s.gw.Delete(plan)
	if err := s.gw.Save(r.Context()); err != nil {
		s.gw.Rollback()
		s.writeError(w, fmt.Errorf("deleting plan: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionDetail struct {
	trends.SessionSummary
	Exercises []models.ExerciseGroup `json:"exercises"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	q := storage.SessionQuery{
		CompletedOnly: r.URL.Query().Get("completed") == "true",
		From:          from,
		To:            to,
	}
	if r.URL.Query().Get("order") == "asc" {
		q.Order = storage.Ascending
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, trends.Sessions(s.gw, q))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.gw.Session(id)
	if !found {
		s.writeError(w, fmt.Errorf("session %s: %w", id, errNotFound))
		return
	}
	writeJSON(w, http.StatusOK, sessionDetail{
		SessionSummary: trends.Summarize(sess),
		Exercises:      sess.GroupByExercise(s.exerciseName),
	})
}

func (s *Server) exerciseName(id uuid.UUID) (string, bool) {
	ex, ok := s.gw.Exercise(id)
	if !ok {
		return "", false
	}
	return ex.Name, true
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.gw.Session(id)
	if !found {
		s.writeError(w, fmt.Errorf("session %s: %w", id, errNotFound))
		return
	}
	s.gw.Delete(sess)
	if err := s.gw.Save(r.Context()); err != nil {
		s.gw.Rollback()
		s.writeError(w, fmt.Errorf("deleting session: %w", err))
		return
	}
	if s.workout != nil && s.workout.Session().ID == id {
		s.endWorkout()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	fb := workout.Feedback{RPE: workout.DefaultRPE}
	if !decodeJSON(w, r, &fb) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.gw.Session(id)
	if !found {
		s.writeError(w, fmt.Errorf("session %s: %w", id, errNotFound))
		return
	}
	if err := workout.Complete(r.Context(), s.gw, sess, fb, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SessionsCompleted.Inc()
	if s.workout != nil && s.workout.Session().ID == id {
		s.endWorkout()
	}
	writeJSON(w, http.StatusOK, trends.Summarize(sess))
}

func (s *Server) handlePainTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workout.SuggestedPainTags)
}

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.alpha.Ingest(r.Context(), r.Body)
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		if errors.Is(err, storage.ErrStorage) {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.metrics.SessionsImported.Add(float64(result.SessionsInserted))
	writeJSON(w, http.StatusOK, result)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrEmptyName),
		errors.Is(err, models.ErrInvalidDaysPerWeek),
		errors.Is(err, models.ErrNoPlanDays),
		errors.Is(err, models.ErrInvalidRPE),
		errors.Is(err, workout.ErrInvalidSet),
		errors.Is(err, trends.ErrUnknownFormula):
		status = http.StatusBadRequest
	case errors.Is(err, errNoWorkout), errors.Is(err, errNotFound), errors.Is(err, trends.ErrUnknownExercise):
		status = http.StatusNotFound
	case errors.Is(err, errWorkoutActive),
		errors.Is(err, workout.ErrFinished),
		errors.Is(err, workout.ErrNothingLogged),
		errors.Is(err, workout.ErrNotQuickMode),
		errors.Is(err, workout.ErrNotFinished):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.metrics.StorageErrors.Inc()
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeRange reads optional start and end query parameters. A date-only
// end covers that whole day.
func parseTimeRange(r *http.Request) (start, end *time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseFlexTime(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start: %w", err)
		}
		start = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid end: %w", err)
			}
			t = t.Add(24 * time.Hour)
		}
		end = &t
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
