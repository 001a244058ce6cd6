package server

import (
	"fmt"
	"net/http"

	"github.com/claude/spotter/internal/library"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/workout"
	"github.com/google/uuid"
)

type startRequest struct {
	PlanDayID *uuid.UUID `json:"plan_day_id"`
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workout != nil && s.workout.Phase() != workout.Finished {
		s.writeError(w, errWorkoutActive)
		return
	}

	var day *models.PlanDay
	if req.PlanDayID != nil {
		day = s.findPlanDay(*req.PlanDayID)
		if day == nil {
			s.writeError(w, fmt.Errorf("plan day %s: %w", *req.PlanDayID, errNotFound))
			return
		}
	}

	m, err := workout.Start(r.Context(), s.gw, library.NewResolver(s.gw, s.now), day, workout.Options{
		Now:        s.now,
		Unit:       s.training.Unit(),
		WeightStep: s.training.WeightStep,
		Weight:     s.training.DefaultWeight,
		Reps:       s.training.DefaultReps,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.workout = m
	s.metrics.SessionsStarted.WithLabelValues(string(m.Mode())).Inc()
	s.metrics.ActiveWorkout.Set(1)
	s.log.Info("workout started", "session", m.Session().ID, "mode", m.Mode())
	writeJSON(w, http.StatusCreated, m.Snapshot())
}

func (s *Server) findPlanDay(id uuid.UUID) *models.PlanDay {
	for _, p := range s.gw.Plans(storage.PlanFilter{}) {
		if d, ok := p.Day(id); ok {
			return d
		}
	}
	return nil
}

// current returns the workout in progress or writes a 404.
func (s *Server) current(w http.ResponseWriter) (*workout.Machine, bool) {
	if s.workout == nil {
		s.writeError(w, errNoWorkout)
		return nil, false
	}
	return s.workout, true
}

func (s *Server) endWorkout() {
	s.workout = nil
	s.metrics.ActiveWorkout.Set(0)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// setRequest overrides what the stepper shows. Omitted fields keep the
// stepper's values.
type setRequest struct {
	Weight *float64          `json:"weight"`
	Reps   *int              `json:"reps"`
	Unit   models.WeightUnit `json:"unit"`
	RPE    *int              `json:"rpe"`
	Notes  *string           `json:"notes"`
}

type logSetResponse struct {
	Set     *models.SetEntry `json:"set"`
	Workout workout.Snapshot `json:"workout"`
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}

	stepper := m.Stepper()
	in := stepper.Input()
	if req.Weight != nil {
		in.Weight = *req.Weight
	}
	if req.Reps != nil {
		in.Reps = *req.Reps
	}
	if req.Unit != "" {
		in.Unit = models.ParseWeightUnit(string(req.Unit))
	}
	if req.RPE != nil {
		in.RPE = req.RPE
	}
	in.Notes = req.Notes
	if err := in.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	set, err := m.LogSet(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if set != nil {
		stepper.Weight, stepper.Reps = in.Weight, in.Reps
		s.metrics.SetsLogged.Inc()
	}
	writeJSON(w, http.StatusOK, logSetResponse{Set: set, Workout: m.Snapshot()})
}

type stepperRequest struct {
	Action string `json:"action"`
	RPE    *int   `json:"rpe"`
}

func (s *Server) handleAdjustStepper(w http.ResponseWriter, r *http.Request) {
	var req stepperRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}
	st := m.Stepper()
	switch req.Action {
	case "increase_weight":
		st.IncreaseWeight()
	case "decrease_weight":
		st.DecreaseWeight()
	case "increase_reps":
		st.IncreaseReps()
	case "decrease_reps":
		st.DecreaseReps()
	case "select_rpe":
		st.SelectRPE(req.RPE)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown stepper action %q", req.Action)})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type addExerciseRequest struct {
	ExerciseID *uuid.UUID `json:"exercise_id"`
	Name       string     `json:"name"`
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req addExerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}

	var ex *models.Exercise
	switch {
	case req.ExerciseID != nil:
		ex, _ = s.gw.Exercise(*req.ExerciseID)
	case req.Name != "":
		if found := s.gw.Exercises(storage.ExerciseFilter{Name: req.Name}); len(found) > 0 {
			ex = found[0]
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_id or name required"})
		return
	}
	if ex == nil {
		s.writeError(w, fmt.Errorf("exercise: %w", errNotFound))
		return
	}
	if err := m.AddExercise(ex); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleNextExercise(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, (*workout.Machine).Next)
}

func (s *Server) handlePreviousExercise(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, (*workout.Machine).Previous)
}

func (s *Server) navigate(w http.ResponseWriter, step func(*workout.Machine) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}
	if err := step(m); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}
	if err := m.Finish(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ActiveWorkout.Set(0)
	s.log.Info("workout finished", "session", m.Session().ID, "sets", len(m.Session().Sets))
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleDiscardWorkout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.current(w)
	if !ok {
		return
	}
	if err := m.Discard(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.endWorkout()
	w.WriteHeader(http.StatusNoContent)
}
