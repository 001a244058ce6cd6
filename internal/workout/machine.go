package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/spotter/internal/library"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrFinished      = errors.New("workout is already finished")
	ErrNothingLogged = errors.New("log at least one set before finishing")
	ErrNotQuickMode  = errors.New("exercises can only be chosen in a quick workout")
	ErrInvalidSet    = errors.New("a set needs a non-negative weight and at least one rep")
)

// defaultTargetSets applies when a planned exercise has no set count.
const defaultTargetSets = 3

// Phase is where a workout stands.
type Phase string

const (
	AwaitingExercise Phase = "awaiting_exercise"
	LoggingExercise  Phase = "logging_exercise"
	PlanExhausted    Phase = "plan_exhausted"
	Finished         Phase = "finished"
)

// Mode is fixed when the workout starts: planned when a plan day is given.
type Mode string

const (
	Planned Mode = "planned"
	Quick   Mode = "quick"
)

// SetInput is one set as the user entered it.
type SetInput struct {
	Weight float64           `json:"weight"`
	Unit   models.WeightUnit `json:"unit"`
	Reps   int               `json:"reps"`
	RPE    *int              `json:"rpe,omitempty"`
	Notes  *string           `json:"notes,omitempty"`
}

func (in SetInput) Validate() error {
	if in.Weight < 0 || in.Reps < 1 {
		return ErrInvalidSet
	}
	return nil
}

// Options tune a new workout. Zero values fall back to defaults.
type Options struct {
	Now        func() time.Time
	Unit       models.WeightUnit
	WeightStep float64
	Weight     float64
	Reps       int
}

// Machine drives a single workout from start to finish. Every logged set is
// saved before the machine advances, so a failed save leaves no trace.
type Machine struct {
	gw       storage.Gateway
	resolver *library.Resolver
	now      func() time.Time

	session *models.Session
	mode    Mode
	started time.Time
	stepper Stepper

	planned   []*models.PlannedExercise
	index     int
	setNumber int
	// blockStart is len(session.Sets) when the current planned exercise began.
	blockStart int

	added    []*models.Exercise
	selected int

	finished bool
}

// Start creates and saves a session. With a nil day the workout runs in
// quick mode.
func Start(ctx context.Context, gw storage.Gateway, resolver *library.Resolver, day *models.PlanDay, opts Options) (*Machine, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	weight, reps := opts.Weight, opts.Reps
	if weight == 0 && reps == 0 {
		weight, reps = DefaultWeight, DefaultReps
	}

	m := &Machine{
		gw:        gw,
		resolver:  resolver,
		now:       now,
		mode:      Quick,
		started:   now(),
		stepper:   NewStepper(weight, reps, opts.Unit, opts.WeightStep),
		setNumber: 1,
	}

	dayName := ""
	if day != nil {
		m.mode = Planned
		m.planned = day.SortedExercises()
		dayName = day.Name
	}

	m.session = models.NewSession(m.started, dayName)
	gw.Insert(m.session)
	if err := gw.Save(ctx); err != nil {
		gw.Rollback()
		return nil, fmt.Errorf("starting workout: %w", err)
	}
	return m, nil
}

func (m *Machine) Session() *models.Session { return m.session }

func (m *Machine) Mode() Mode { return m.mode }

// Stepper exposes the displayed weight and reps for adjustment.
func (m *Machine) Stepper() *Stepper { return &m.stepper }

func (m *Machine) Phase() Phase {
	switch {
	case m.finished:
		return Finished
	case m.mode == Planned && m.index >= len(m.planned):
		return PlanExhausted
	case m.mode == Quick && len(m.added) == 0:
		return AwaitingExercise
	}
	return LoggingExercise
}

// CurrentExercise names the exercise the next set is logged against, or ""
// when there is none.
func (m *Machine) CurrentExercise() string {
	if m.Phase() != LoggingExercise {
		return ""
	}
	if m.mode == Planned {
		return m.planned[m.index].ExerciseName
	}
	return m.added[m.selected].Name
}

// SetNumber is the 1-based number of the next set for the current exercise.
func (m *Machine) SetNumber() int {
	if m.Phase() != LoggingExercise {
		return 0
	}
	if m.mode == Planned {
		return m.setNumber
	}
	return len(m.setsFor(m.added[m.selected].ID)) + 1
}

// TargetSets is the prescribed set count for the current planned exercise.
func (m *Machine) TargetSets() int {
	if m.mode != Planned || m.Phase() != LoggingExercise {
		return 0
	}
	return targetSets(m.planned[m.index])
}

func targetSets(pe *models.PlannedExercise) int {
	if pe.Sets > 0 {
		return pe.Sets
	}
	return defaultTargetSets
}

// LogSet records a set against the current exercise. With no current
// exercise, or once finished, it does nothing and returns a nil entry.
func (m *Machine) LogSet(ctx context.Context, in SetInput) (*models.SetEntry, error) {
	m.dropDeleted()
	if m.Phase() != LoggingExercise {
		return nil, nil
	}

	var ex *models.Exercise
	if m.mode == Planned {
		ex = m.resolver.Resolve(m.planned[m.index].ExerciseName)
	} else {
		ex = m.added[m.selected]
	}

	unit := in.Unit
	if unit == "" {
		unit = m.stepper.Unit
	}
	exerciseID, sessionID := ex.ID, m.session.ID
	set := &models.SetEntry{
		ID:         uuid.New(),
		ExerciseID: &exerciseID,
		SessionID:  &sessionID,
		Weight:     in.Weight,
		Unit:       unit,
		Reps:       in.Reps,
		RPE:        in.RPE,
		Notes:      in.Notes,
		Timestamp:  m.now(),
		OrderIndex: len(m.session.Sets),
	}

	m.gw.Insert(set)
	if err := m.gw.Save(ctx); err != nil {
		m.gw.Rollback()
		if m.mode == Planned {
			m.resolver.Forget(ex.Name)
		}
		return nil, fmt.Errorf("logging set for %s: %w", ex.Name, err)
	}

	if m.mode == Planned {
		m.advance()
	}
	return set, nil
}

func (m *Machine) advance() {
	if m.setNumber >= targetSets(m.planned[m.index]) {
		m.index++
		m.setNumber = 1
		m.blockStart = len(m.session.Sets)
		m.stepper.RPE = nil
		return
	}
	m.setNumber++
}

// AddExercise appends a library exercise to a quick workout and selects it.
// An exercise already added is selected instead of added twice.
func (m *Machine) AddExercise(ex *models.Exercise) error {
	if m.finished {
		return ErrFinished
	}
	if m.mode != Quick {
		return ErrNotQuickMode
	}
	m.dropDeleted()
	for i, added := range m.added {
		if added.ID == ex.ID {
			m.selected = i
			return nil
		}
	}
	m.added = append(m.added, ex)
	m.selected = len(m.added) - 1
	return nil
}

// Next selects the following added exercise, staying on the last one.
func (m *Machine) Next() error {
	if err := m.canNavigate(); err != nil {
		return err
	}
	if m.selected < len(m.added)-1 {
		m.selected++
	}
	return nil
}

// Previous selects the preceding added exercise, staying on the first one.
func (m *Machine) Previous() error {
	if err := m.canNavigate(); err != nil {
		return err
	}
	if m.selected > 0 {
		m.selected--
	}
	return nil
}

func (m *Machine) canNavigate() error {
	if m.finished {
		return ErrFinished
	}
	if m.mode != Quick {
		return ErrNotQuickMode
	}
	m.dropDeleted()
	return nil
}

// dropDeleted forgets quick-mode exercises removed from the library since
// they were added, keeping the selection on the same exercise when it
// survives.
func (m *Machine) dropDeleted() {
	if m.mode != Quick {
		return
	}
	var current *models.Exercise
	if m.selected < len(m.added) {
		current = m.added[m.selected]
	}
	kept := m.added[:0]
	m.selected = 0
	for _, ex := range m.added {
		if _, ok := m.gw.Exercise(ex.ID); !ok {
			continue
		}
		if ex == current {
			m.selected = len(kept)
		}
		kept = append(kept, ex)
	}
	m.added = kept
	if m.selected >= len(m.added) {
		m.selected = max(len(m.added)-1, 0)
	}
}

// Finish stamps the elapsed time on the session and closes the workout.
func (m *Machine) Finish(ctx context.Context) error {
	if m.finished {
		return ErrFinished
	}
	if m.mode == Quick && len(m.session.Sets) == 0 {
		return ErrNothingLogged
	}

	prev := m.session.Duration
	d := m.now().Sub(m.started)
	m.session.Duration = &d
	m.gw.Update(m.session)
	if err := m.gw.Save(ctx); err != nil {
		m.gw.Rollback()
		m.session.Duration = prev
		return fmt.Errorf("finishing workout: %w", err)
	}
	m.finished = true
	return nil
}

// Discard deletes the session and everything logged in it.
func (m *Machine) Discard(ctx context.Context) error {
	m.gw.Delete(m.session)
	if err := m.gw.Save(ctx); err != nil {
		m.gw.Rollback()
		return fmt.Errorf("discarding workout: %w", err)
	}
	m.finished = true
	return nil
}

func (m *Machine) setsFor(exerciseID uuid.UUID) []*models.SetEntry {
	var out []*models.SetEntry
	for _, s := range m.session.Sets {
		if s.ExerciseID != nil && *s.ExerciseID == exerciseID {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot is a read-only view of a workout.
type Snapshot struct {
	SessionID   uuid.UUID          `json:"session_id"`
	Mode        Mode               `json:"mode"`
	Phase       Phase              `json:"phase"`
	PlanDayName string             `json:"plan_day_name,omitempty"`
	Exercise    string             `json:"exercise,omitempty"`
	Prescribed  string             `json:"prescribed,omitempty"`
	SetNumber   int                `json:"set_number,omitempty"`
	TargetSets  int                `json:"target_sets,omitempty"`
	SetsLogged  int                `json:"sets_logged"`
	Elapsed     time.Duration      `json:"-"`
	ElapsedSec  int64              `json:"elapsed_seconds"`
	CurrentSets []*models.SetEntry `json:"current_sets"`
	Exercises   []string           `json:"exercises"`
	Stepper     Stepper            `json:"stepper"`
}

func (m *Machine) Snapshot() Snapshot {
	m.dropDeleted()
	elapsed := m.now().Sub(m.started)
	if m.session.Duration != nil {
		elapsed = *m.session.Duration
	}
	s := Snapshot{
		SessionID:   m.session.ID,
		Mode:        m.mode,
		Phase:       m.Phase(),
		Exercise:    m.CurrentExercise(),
		SetNumber:   m.SetNumber(),
		TargetSets:  m.TargetSets(),
		SetsLogged:  len(m.session.Sets),
		Elapsed:     elapsed,
		ElapsedSec:  int64(elapsed / time.Second),
		CurrentSets: []*models.SetEntry{},
		Exercises:   []string{},
		Stepper:     m.stepper,
	}
	if m.session.PlanDayName != nil {
		s.PlanDayName = *m.session.PlanDayName
	}
	if m.mode == Planned {
		for _, pe := range m.planned {
			s.Exercises = append(s.Exercises, pe.ExerciseName)
		}
	} else {
		for _, ex := range m.added {
			s.Exercises = append(s.Exercises, ex.Name)
		}
	}

	if s.Phase == LoggingExercise {
		if m.mode == Planned {
			pe := m.planned[m.index]
			s.Prescribed = pe.Prescription()
			from := min(m.blockStart, len(m.session.Sets))
			s.CurrentSets = append(s.CurrentSets, m.session.Sets[from:]...)
		} else {
			s.CurrentSets = append(s.CurrentSets, m.setsFor(m.added[m.selected].ID)...)
		}
	}
	return s
}
