package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidDaysPerWeek = errors.New("days per week must be between 1 and 7")
	ErrNoPlanDays         = errors.New("plan needs at least one training day")
)

// TrainingPlan is a rotating multi-day plan. At most one plan is active.
type TrainingPlan struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	DaysPerWeek int        `json:"days_per_week"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	Notes       *string    `json:"notes,omitempty"`
	Days        []*PlanDay `json:"days"`
}

func (p *TrainingPlan) EntityID() uuid.UUID { return p.ID }

// SortedDays returns the plan's days ordered by OrderIndex.
func (p *TrainingPlan) SortedDays() []*PlanDay {
	days := make([]*PlanDay, len(p.Days))
	copy(days, p.Days)
	sort.SliceStable(days, func(i, j int) bool { return days[i].OrderIndex < days[j].OrderIndex })
	return days
}

// Day looks up a day by ID.
func (p *TrainingPlan) Day(id uuid.UUID) (*PlanDay, bool) {
	for _, d := range p.Days {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Validate checks the fields a plan must carry before it is saved.
func (p *TrainingPlan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan: %w", ErrEmptyName)
	}
	if p.DaysPerWeek < 1 || p.DaysPerWeek > 7 {
		return ErrInvalidDaysPerWeek
	}
	if len(p.Days) == 0 {
		return ErrNoPlanDays
	}
	for i, d := range p.Days {
		if d.Name == "" {
			return fmt.Errorf("plan day %d: %w", i+1, ErrEmptyName)
		}
	}
	return nil
}

// PlanDay is one named session template within a plan.
type PlanDay struct {
	ID         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	OrderIndex int                `json:"order_index"`
	PlanID     *uuid.UUID         `json:"plan_id,omitempty"`
	Exercises  []*PlannedExercise `json:"exercises"`
}

func (d *PlanDay) EntityID() uuid.UUID { return d.ID }

// SortedExercises returns the day's planned exercises ordered by OrderIndex.
func (d *PlanDay) SortedExercises() []*PlannedExercise {
	exs := make([]*PlannedExercise, len(d.Exercises))
	copy(exs, d.Exercises)
	sort.SliceStable(exs, func(i, j int) bool { return exs[i].OrderIndex < exs[j].OrderIndex })
	return exs
}

// PlannedExercise prescribes sets for an exercise named in free text.
// ExerciseID is a best-effort link and may be absent.
type PlannedExercise struct {
	ID           uuid.UUID  `json:"id"`
	ExerciseName string     `json:"exercise_name"`
	Sets         int        `json:"sets"`
	Reps         string     `json:"reps"`
	Notes        *string    `json:"notes,omitempty"`
	OrderIndex   int        `json:"order_index"`
	PlanDayID    *uuid.UUID `json:"plan_day_id,omitempty"`
	ExerciseID   *uuid.UUID `json:"exercise_id,omitempty"`
}

func (e *PlannedExercise) EntityID() uuid.UUID { return e.ID }

// Prescription renders "3 × 8-12".
func (e *PlannedExercise) Prescription() string {
	return fmt.Sprintf("%d × %s", e.Sets, e.Reps)
}
