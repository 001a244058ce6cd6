package plans

import (
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
)

// NextDay picks the plan day to train next: the day after the one named by
// the last completed session, wrapping around. With no usable history the
// rotation restarts at the first day. It returns nil for a nil plan or a plan
// without days.
func NextDay(plan *models.TrainingPlan, lastCompleted *models.Session) *models.PlanDay {
	if plan == nil {
		return nil
	}
	days := plan.SortedDays()
	if len(days) == 0 {
		return nil
	}
	if lastCompleted != nil && lastCompleted.PlanDayName != nil {
		for i, d := range days {
			if d.Name == *lastCompleted.PlanDayName {
				return days[(i+1)%len(days)]
			}
		}
	}
	return days[0]
}

// LastCompleted returns the most recent completed session by date, or nil.
func LastCompleted(sessions []*models.Session) *models.Session {
	var last *models.Session
	for _, s := range sessions {
		if !s.IsCompleted() {
			continue
		}
		if last == nil || s.Date.After(last.Date) {
			last = s
		}
	}
	return last
}

// Outlook is what to train next, computed from current data.
type Outlook struct {
	Plan        *models.TrainingPlan `json:"plan"`
	NextDay     *models.PlanDay      `json:"next_day"`
	LastSession *models.Session      `json:"last_session"`
}

// Today reads the active plan and the latest completed session from gw and
// selects the next day. Nothing is cached between calls.
func Today(gw storage.Gateway) Outlook {
	var t Outlook
	if active := gw.Plans(storage.PlanFilter{ActiveOnly: true}); len(active) > 0 {
		t.Plan = active[0]
	}
	if recent := gw.Sessions(storage.SessionQuery{CompletedOnly: true, Limit: 1}); len(recent) > 0 {
		t.LastSession = recent[0]
	}
	t.NextDay = NextDay(t.Plan, t.LastSession)
	return t
}
