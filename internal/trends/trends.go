// Package trends answers the dashboard questions asked of stored sessions,
// shared by the HTTP API and the MCP tools.
package trends

import (
	"errors"
	"fmt"
	"time"

	"github.com/claude/spotter/internal/analytics"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/plans"
	"github.com/claude/spotter/internal/storage"
)

var (
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrUnknownFormula  = errors.New("unknown e1rm formula")
)

// DefaultWeeks is the volume window when none is requested.
const DefaultWeeks = 8

// MaxWeeks caps the volume window.
const MaxWeeks = 52

// Calendar fixes week boundaries for aggregation.
type Calendar struct {
	First    time.Weekday
	Location *time.Location
}

// WeeklyVolume is the volume of every stored session over the last weeks
// calendar weeks, oldest first.
func WeeklyVolume(gw storage.Gateway, cal Calendar, now time.Time, weeks int) []analytics.WeekVolume {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	weeks = min(weeks, MaxWeeks)
	from := analytics.WeekStart(now, cal.First, cal.Location).AddDate(0, 0, -7*(weeks-1))
	sessions := gw.Sessions(storage.SessionQuery{From: &from, Order: storage.Ascending})
	return analytics.WeeklyVolume(sessions, now, weeks, cal.First, cal.Location)
}

// Consistency reports training days in the current calendar week.
func Consistency(gw storage.Gateway, cal Calendar, now time.Time) analytics.Consistency {
	from := analytics.WeekStart(now, cal.First, cal.Location)
	to := from.AddDate(0, 0, 7)
	sessions := gw.Sessions(storage.SessionQuery{From: &from, To: &to, Order: storage.Ascending})
	return analytics.WeeklyConsistency(sessions, now, cal.First, cal.Location)
}

// E1RMReport is the estimated-max history of one exercise.
type E1RMReport struct {
	Exercise string                `json:"exercise"`
	Formula  string                `json:"formula"`
	Best     *float64              `json:"best,omitempty"`
	Points   []analytics.E1RMPoint `json:"points"`
}

// E1RM estimates the one-rep max of every set logged for the exercise
// named exactly exercise.
func E1RM(gw storage.Gateway, exercise, formula string) (*E1RMReport, error) {
	f, ok := analytics.FormulaByName(formula)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormula, formula)
	}
	found := gw.Exercises(storage.ExerciseFilter{Name: exercise})
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, exercise)
	}
	if formula == "" {
		formula = "epley"
	}

	sets := gw.SetsForExercise(found[0].ID)
	report := &E1RMReport{
		Exercise: found[0].Name,
		Formula:  formula,
		Points:   analytics.Progression(sets, f),
	}
	if best, ok := analytics.BestEstimate(sets, f); ok {
		report.Best = &best
	}
	return report, nil
}

// SessionSummary is a session with its derived totals.
type SessionSummary struct {
	*models.Session
	Volume        float64 `json:"volume"`
	ExerciseCount int     `json:"exercise_count"`
	Completed     bool    `json:"completed"`
}

func Summarize(s *models.Session) SessionSummary {
	return SessionSummary{
		Session:       s,
		Volume:        s.TotalVolume(),
		ExerciseCount: s.ExerciseCount(),
		Completed:     s.IsCompleted(),
	}
}

// Sessions summarises the sessions matching q.
func Sessions(gw storage.Gateway, q storage.SessionQuery) []SessionSummary {
	out := []SessionSummary{}
	for _, s := range gw.Sessions(q) {
		out = append(out, Summarize(s))
	}
	return out
}

// TodayReport is the next plan day with a summary of the last completed
// session.
type TodayReport struct {
	plans.Outlook
	LastSessionVolume    float64 `json:"last_session_volume"`
	LastSessionExercises int     `json:"last_session_exercises"`
}

func Today(gw storage.Gateway) TodayReport {
	r := TodayReport{Outlook: plans.Today(gw)}
	if last := r.LastSession; last != nil {
		r.LastSessionVolume = last.TotalVolume()
		r.LastSessionExercises = last.ExerciseCount()
	}
	return r
}
