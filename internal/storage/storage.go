package storage

import (
	"context"
	"errors"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/google/uuid"
)

// ErrStorage wraps every failure to make pending changes durable.
var ErrStorage = errors.New("storage error")

// SortOrder controls the date ordering of session queries.
type SortOrder int

const (
	Descending SortOrder = iota
	Ascending
)

// ExerciseFilter narrows an exercise fetch. Zero values match everything.
type ExerciseFilter struct {
	Name       string          // exact, case-sensitive
	Search     string          // case-insensitive substring of the name
	Modality   models.Modality // empty matches all
	CustomOnly bool
}

// SessionQuery narrows and orders a session fetch. Sessions are ordered by date.
type SessionQuery struct {
	CompletedOnly bool
	From          *time.Time // inclusive
	To            *time.Time // exclusive
	Order         SortOrder
	Limit         int
}

// PlanFilter narrows a plan fetch.
type PlanFilter struct {
	ActiveOnly bool
}

// Gateway is the persistence collaborator used by the core. Reads return the
// live object graph; writes are pending until Save commits them.
type Gateway interface {
	Insert(e models.Entity)
	Update(e models.Entity)
	Delete(e models.Entity)

	Exercises(f ExerciseFilter) []*models.Exercise
	Exercise(id uuid.UUID) (*models.Exercise, bool)
	CountExercises() int
	Sessions(q SessionQuery) []*models.Session
	Session(id uuid.UUID) (*models.Session, bool)
	SetsForExercise(id uuid.UUID) []*models.SetEntry
	Plans(f PlanFilter) []*models.TrainingPlan
	Plan(id uuid.UUID) (*models.TrainingPlan, bool)

	Save(ctx context.Context) error
	Rollback()
}

// Snapshot is the flat row set a Backend loads at startup.
type Snapshot struct {
	Exercises        []*models.Exercise
	Sessions         []*models.Session
	Sets             []*models.SetEntry
	Plans            []*models.TrainingPlan
	Days             []*models.PlanDay
	PlannedExercises []*models.PlannedExercise
}

// Changeset is the net effect of the mutations made since the last Save.
// Deletes are ordered children first; upserts parents first.
type Changeset struct {
	Upserts []models.Entity
	Deletes []models.Entity
}

// Empty reports whether there is nothing to persist.
func (c Changeset) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}

// Backend makes changesets durable.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Apply(ctx context.Context, cs Changeset) error
	Close() error
}
