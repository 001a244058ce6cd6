package plans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/google/uuid"
)

var now = time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)

func threeDayPlan() *models.TrainingPlan {
	p := &models.TrainingPlan{ID: uuid.New(), Name: "Rotation", DaysPerWeek: 3, IsActive: true, CreatedAt: now}
	// Stored out of order to check sorting by order index.
	for _, i := range []int{2, 0, 1} {
		p.Days = append(p.Days, &models.PlanDay{ID: uuid.New(), Name: []string{"Day1", "Day2", "Day3"}[i], OrderIndex: i})
	}
	return p
}

func completed(dayName string, date time.Time) *models.Session {
	s := models.NewSession(date, dayName)
	done := date.Add(time.Hour)
	s.CompletedAt = &done
	return s
}

// TestNextDay verifies the rotation including wrap-around and fallbacks.
func TestNextDay(t *testing.T) {
	plan := threeDayPlan()
	tests := []struct {
		name string
		last *models.Session
		want string
	}{
		{"after Day2", completed("Day2", now), "Day3"},
		{"wraps after Day3", completed("Day3", now), "Day1"},
		{"no history", nil, "Day1"},
		{"quick session", completed("", now), "Day1"},
		{"renamed day", completed("Leg Day", now), "Day1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDay(plan, tt.last)
			if got == nil || got.Name != tt.want {
				t.Errorf("NextDay = %v, want %s", got, tt.want)
			}
		})
	}
}

// TestNextDayWithoutDays verifies nil results for missing plans or days.
func TestNextDayWithoutDays(t *testing.T) {
	if NextDay(nil, nil) != nil {
		t.Error("nil plan returned a day")
	}
	if NextDay(&models.TrainingPlan{Name: "Empty"}, completed("Day1", now)) != nil {
		t.Error("plan without days returned a day")
	}
}

// TestLastCompleted verifies incomplete sessions are ignored and the latest date wins.
func TestLastCompleted(t *testing.T) {
	older := completed("Day1", now.AddDate(0, 0, -2))
	newer := completed("Day2", now.AddDate(0, 0, -1))
	inProgress := models.NewSession(now, "Day3")

	if got := LastCompleted([]*models.Session{newer, inProgress, older}); got != newer {
		t.Errorf("LastCompleted = %v, want the newer session", got)
	}
	if LastCompleted([]*models.Session{inProgress}) != nil {
		t.Error("incomplete session counted as completed")
	}
}

// TestToday verifies the gateway-backed outlook.
func TestToday(t *testing.T) {
	gw := storage.NewArena()
	if got := Today(gw); got.Plan != nil || got.NextDay != nil || got.LastSession != nil {
		t.Fatalf("empty outlook = %+v", got)
	}

	plan := threeDayPlan()
	gw.Insert(plan)
	gw.Insert(completed("Day1", now.AddDate(0, 0, -3)))
	gw.Insert(completed("Day2", now.AddDate(0, 0, -1)))
	gw.Insert(models.NewSession(now, "Day3"))

	got := Today(gw)
	if got.Plan != plan || got.NextDay == nil || got.NextDay.Name != "Day3" {
		t.Errorf("outlook = %+v", got)
	}
	if got.LastSession == nil || *got.LastSession.PlanDayName != "Day2" {
		t.Errorf("last session = %+v", got.LastSession)
	}
}

// TestDraftBuild verifies defaults, skipping unnamed exercises and contiguous order.
func TestDraftBuild(t *testing.T) {
	plan := Draft{
		Name:        " Upper/Lower ",
		DaysPerWeek: 4,
		Days: []DraftDay{
			{Name: "Upper", Exercises: []DraftExercise{
				{Name: "Bench Press", Sets: 5, Reps: "5"},
				{Name: ""},
				{Name: "Row"},
			}},
			{Name: "Lower"},
		},
	}.Build(now)

	if plan.Name != "Upper/Lower" || !plan.IsActive || plan.Notes != nil {
		t.Errorf("plan = %+v", plan)
	}
	upper := plan.Days[0]
	if len(upper.Exercises) != 2 {
		t.Fatalf("upper exercises = %d, want 2", len(upper.Exercises))
	}
	row := upper.Exercises[1]
	if row.OrderIndex != 1 || row.Sets != DefaultSets || row.Reps != DefaultReps {
		t.Errorf("row = %+v", row)
	}
	if plan.Days[1].OrderIndex != 1 || *plan.Days[1].PlanID != plan.ID {
		t.Errorf("lower day = %+v", plan.Days[1])
	}
}

// TestSaveActivationIsExclusive verifies saving an active plan deactivates the others.
func TestSaveActivationIsExclusive(t *testing.T) {
	ctx := context.Background()
	gw := storage.NewArena()

	first := threeDayPlan()
	if err := Save(ctx, gw, first); err != nil {
		t.Fatal(err)
	}
	second := Draft{Name: "PPL", DaysPerWeek: 6, Days: []DraftDay{{Name: "Push"}}}.Build(now.Add(time.Hour))
	if err := Save(ctx, gw, second); err != nil {
		t.Fatal(err)
	}

	active := gw.Plans(storage.PlanFilter{ActiveOnly: true})
	if len(active) != 1 || active[0] != second {
		t.Fatalf("active plans = %v, want only the second", active)
	}
	if first.IsActive {
		t.Error("first plan still active")
	}

	if err := Activate(ctx, gw, first); err != nil {
		t.Fatal(err)
	}
	if !first.IsActive || second.IsActive {
		t.Errorf("after activate: first=%v second=%v", first.IsActive, second.IsActive)
	}
}

// TestSaveRenumbers verifies that order indices become contiguous.
func TestSaveRenumbers(t *testing.T) {
	plan := threeDayPlan()
	plan.Days[0].OrderIndex = 10
	plan.Days[0].Exercises = []*models.PlannedExercise{
		{ID: uuid.New(), ExerciseName: "Squat", Sets: 3, Reps: "5", OrderIndex: 4},
		{ID: uuid.New(), ExerciseName: " ", Sets: 3, Reps: "5", OrderIndex: 6},
		{ID: uuid.New(), ExerciseName: "Lunge", Sets: 3, Reps: "10", OrderIndex: 9},
	}
	if err := Save(context.Background(), storage.NewArena(), plan); err != nil {
		t.Fatal(err)
	}
	for i, d := range plan.Days {
		if d.OrderIndex != i {
			t.Errorf("day %q order = %d, want %d", d.Name, d.OrderIndex, i)
		}
	}
	last := plan.Days[2]
	if last.Name != "Day3" || len(last.Exercises) != 2 || last.Exercises[1].OrderIndex != 1 {
		t.Errorf("renumbered day = %+v", last)
	}
}

// TestSaveRejectsInvalid verifies validation sentinels surface from Save.
func TestSaveRejectsInvalid(t *testing.T) {
	gw := storage.NewArena()
	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"empty name", Draft{DaysPerWeek: 3, Days: []DraftDay{{Name: "A"}}}, models.ErrEmptyName},
		{"no days", Draft{Name: "P", DaysPerWeek: 3}, models.ErrNoPlanDays},
		{"too many days per week", Draft{Name: "P", DaysPerWeek: 8, Days: []DraftDay{{Name: "A"}}}, models.ErrInvalidDaysPerWeek},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Save(context.Background(), gw, tt.draft.Build(now))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(gw.Plans(storage.PlanFilter{})) != 0 {
		t.Error("invalid plan was stored")
	}
}

// TestActivateRejectedPlanUnchanged verifies that a plan failing validation
// keeps its order indices, planned exercises and active flag.
func TestActivateRejectedPlanUnchanged(t *testing.T) {
	gw := storage.NewArena()
	plan := threeDayPlan()
	plan.IsActive = false
	plan.DaysPerWeek = 9
	blank := &models.PlannedExercise{ID: uuid.New(), ExerciseName: " ", Sets: 3, Reps: "5", OrderIndex: 4}
	plan.Days[0].Exercises = []*models.PlannedExercise{blank}

	err := Activate(context.Background(), gw, plan)
	if !errors.Is(err, models.ErrInvalidDaysPerWeek) {
		t.Fatalf("Activate error = %v, want ErrInvalidDaysPerWeek", err)
	}
	if plan.IsActive {
		t.Error("rejected plan left active")
	}
	if plan.Days[0].OrderIndex != 2 || plan.Days[0].Name != "Day3" {
		t.Errorf("days reordered: first = %s at %d", plan.Days[0].Name, plan.Days[0].OrderIndex)
	}
	if len(plan.Days[0].Exercises) != 1 || blank.OrderIndex != 4 {
		t.Errorf("planned exercises changed: %+v", plan.Days[0].Exercises)
	}
	if len(gw.Plans(storage.PlanFilter{})) != 0 {
		t.Error("rejected plan was stored")
	}
}
