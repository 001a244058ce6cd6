package models

import (
	"errors"
	"testing"
)

// TestParseModality verifies known tags round-trip and unknown tags fall back
// to "other" instead of failing.
func TestParseModality(t *testing.T) {
	tests := []struct {
		in   string
		want Modality
	}{
		{"barbell", ModalityBarbell},
		{"climb", ModalityClimb},
		{"kettlebell", ModalityOther},
		{"Barbell", ModalityOther},
		{"", ModalityOther},
	}
	for _, tt := range tests {
		if got := ParseModality(tt.in); got != tt.want {
			t.Errorf("ParseModality(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := ModalityBodyweight.DisplayName(); got != "Bodyweight" {
		t.Errorf("DisplayName() = %q, want Bodyweight", got)
	}
}

// TestPlanValidate verifies the boundary checks applied before a plan is saved.
func TestPlanValidate(t *testing.T) {
	day := &PlanDay{Name: "Day 1"}
	tests := []struct {
		name string
		plan TrainingPlan
		want error
	}{
		{"valid", TrainingPlan{Name: "PPL", DaysPerWeek: 3, Days: []*PlanDay{day}}, nil},
		{"empty name", TrainingPlan{DaysPerWeek: 3, Days: []*PlanDay{day}}, ErrEmptyName},
		{"zero days per week", TrainingPlan{Name: "PPL", Days: []*PlanDay{day}}, ErrInvalidDaysPerWeek},
		{"eight days per week", TrainingPlan{Name: "PPL", DaysPerWeek: 8, Days: []*PlanDay{day}}, ErrInvalidDaysPerWeek},
		{"no days", TrainingPlan{Name: "PPL", DaysPerWeek: 3}, ErrNoPlanDays},
		{"unnamed day", TrainingPlan{Name: "PPL", DaysPerWeek: 3, Days: []*PlanDay{{}}}, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestSortedDaysAndExercises verifies ordering uses OrderIndex rather than
// slice position.
func TestSortedDaysAndExercises(t *testing.T) {
	plan := &TrainingPlan{Days: []*PlanDay{
		{Name: "C", OrderIndex: 2},
		{Name: "A", OrderIndex: 0},
		{Name: "B", OrderIndex: 1},
	}}
	days := plan.SortedDays()
	for i, want := range []string{"A", "B", "C"} {
		if days[i].Name != want {
			t.Errorf("days[%d] = %q, want %q", i, days[i].Name, want)
		}
	}
	if plan.Days[0].Name != "C" {
		t.Error("SortedDays must not reorder the plan's own slice")
	}

	day := &PlanDay{Exercises: []*PlannedExercise{
		{ExerciseName: "Row", OrderIndex: 1, Sets: 3, Reps: "8-12"},
		{ExerciseName: "Squat", OrderIndex: 0, Sets: 5, Reps: "5"},
	}}
	exs := day.SortedExercises()
	if exs[0].ExerciseName != "Squat" {
		t.Errorf("first exercise = %q, want Squat", exs[0].ExerciseName)
	}
	if got := exs[1].Prescription(); got != "3 × 8-12" {
		t.Errorf("Prescription() = %q, want %q", got, "3 × 8-12")
	}
}
