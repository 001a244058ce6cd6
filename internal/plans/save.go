package plans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/google/uuid"
)

const (
	DefaultSets = 3
	DefaultReps = "8-12"
)

// Draft is a plan as entered by the user.
type Draft struct {
	Name        string     `json:"name"`
	DaysPerWeek int        `json:"days_per_week"`
	Notes       string     `json:"notes"`
	Days        []DraftDay `json:"days"`
}

type DraftDay struct {
	Name      string          `json:"name"`
	Exercises []DraftExercise `json:"exercises"`
}

type DraftExercise struct {
	Name  string `json:"name"`
	Sets  int    `json:"sets"`
	Reps  string `json:"reps"`
	Notes string `json:"notes"`
}

// Build turns the draft into an active plan. Exercises without a name are
// dropped; missing sets and reps get the defaults.
func (d Draft) Build(now time.Time) *models.TrainingPlan {
	plan := &models.TrainingPlan{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(d.Name),
		DaysPerWeek: d.DaysPerWeek,
		IsActive:    true,
		CreatedAt:   now,
		Days:        []*models.PlanDay{},
	}
	if d.Notes != "" {
		notes := d.Notes
		plan.Notes = &notes
	}
	for i, dd := range d.Days {
		day := &models.PlanDay{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(dd.Name),
			OrderIndex: i,
			PlanID:     &plan.ID,
			Exercises:  []*models.PlannedExercise{},
		}
		for _, de := range dd.Exercises {
			name := strings.TrimSpace(de.Name)
			if name == "" {
				continue
			}
			pe := &models.PlannedExercise{
				ID:           uuid.New(),
				ExerciseName: name,
				Sets:         de.Sets,
				Reps:         de.Reps,
				OrderIndex:   len(day.Exercises),
				PlanDayID:    &day.ID,
			}
			if pe.Sets <= 0 {
				pe.Sets = DefaultSets
			}
			if pe.Reps == "" {
				pe.Reps = DefaultReps
			}
			if de.Notes != "" {
				notes := de.Notes
				pe.Notes = &notes
			}
			day.Exercises = append(day.Exercises, pe)
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

// Save validates and persists plan. A rejected plan is left untouched. Days and planned exercises are renumbered
// contiguously in their current order, unnamed planned exercises are dropped,
// and an active plan deactivates every other plan.
func Save(ctx context.Context, gw storage.Gateway, plan *models.TrainingPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	dropped := normalize(plan)
	for _, pe := range dropped {
		gw.Delete(pe)
	}

	var deactivated []*models.TrainingPlan
	if plan.IsActive {
		for _, other := range gw.Plans(storage.PlanFilter{ActiveOnly: true}) {
			if other.ID == plan.ID {
				continue
			}
			other.IsActive = false
			gw.Update(other)
			deactivated = append(deactivated, other)
		}
	}

	gw.Insert(plan)
	if err := gw.Save(ctx); err != nil {
		gw.Rollback()
		for _, p := range deactivated {
			p.IsActive = true
		}
		return fmt.Errorf("saving plan %q: %w", plan.Name, err)
	}
	return nil
}

// Activate makes plan the only active plan.
func Activate(ctx context.Context, gw storage.Gateway, plan *models.TrainingPlan) error {
	was := plan.IsActive
	plan.IsActive = true
	if err := Save(ctx, gw, plan); err != nil {
		plan.IsActive = was
		return err
	}
	return nil
}

// normalize renumbers the plan in place and returns the planned exercises it removed.
func normalize(plan *models.TrainingPlan) []*models.PlannedExercise {
	var dropped []*models.PlannedExercise
	days := plan.SortedDays()
	for i, d := range days {
		d.OrderIndex = i
		kept := make([]*models.PlannedExercise, 0, len(d.Exercises))
		for _, pe := range d.SortedExercises() {
			if strings.TrimSpace(pe.ExerciseName) == "" {
				dropped = append(dropped, pe)
				continue
			}
			pe.OrderIndex = len(kept)
			kept = append(kept, pe)
		}
		d.Exercises = kept
	}
	plan.Days = days
	return dropped
}
