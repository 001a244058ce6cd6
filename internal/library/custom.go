package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
)

// CustomExercise is user input for a new library entry. MuscleGroups is a
// comma-separated list.
type CustomExercise struct {
	Name         string `json:"name"`
	MuscleGroups string `json:"muscle_groups"`
	Modality     string `json:"modality"`
	Notes        string `json:"notes"`
}

// CreateCustom validates input and saves it as a custom exercise.
func CreateCustom(ctx context.Context, gw storage.Gateway, in CustomExercise, now time.Time) (*models.Exercise, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("exercise: %w", models.ErrEmptyName)
	}

	ex := models.NewExercise(name, now)
	ex.Modality = models.ParseModality(in.Modality)
	ex.MuscleGroups = SplitMuscleGroups(in.MuscleGroups)
	ex.IsCustom = true
	if in.Notes != "" {
		notes := in.Notes
		ex.Notes = &notes
	}

	gw.Insert(ex)
	if err := gw.Save(ctx); err != nil {
		gw.Rollback()
		return nil, fmt.Errorf("saving exercise %q: %w", name, err)
	}
	return ex, nil
}

// SplitMuscleGroups turns "Chest, Triceps" into [chest triceps].
func SplitMuscleGroups(s string) []string {
	groups := []string{}
	for _, part := range strings.Split(s, ",") {
		if g := strings.ToLower(strings.TrimSpace(part)); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// ModalityGroup is a run of exercises sharing a modality.
type ModalityGroup struct {
	Modality  models.Modality    `json:"modality"`
	Label     string             `json:"label"`
	Exercises []*models.Exercise `json:"exercises"`
}

// GroupByModality buckets exercises by modality, sorted by display name.
// Exercise order within a bucket is preserved.
func GroupByModality(exercises []*models.Exercise) []ModalityGroup {
	idx := make(map[models.Modality]int)
	var groups []ModalityGroup
	for _, ex := range exercises {
		i, ok := idx[ex.Modality]
		if !ok {
			i = len(groups)
			idx[ex.Modality] = i
			groups = append(groups, ModalityGroup{Modality: ex.Modality, Label: ex.Modality.DisplayName()})
		}
		groups[i].Exercises = append(groups[i].Exercises, ex)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Label < groups[j].Label })
	return groups
}
