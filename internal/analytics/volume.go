package analytics

import (
	"time"

	"github.com/claude/spotter/internal/models"
)

// SessionVolume is Σ weight × reps over the session's sets in stored units.
func SessionVolume(s *models.Session) float64 {
	return s.TotalVolume()
}

// WeekStart returns midnight in loc of the first day of the calendar week
// containing t, where weeks begin on first.
func WeekStart(t time.Time, first time.Weekday, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	offset := (int(t.Weekday()) - int(first) + 7) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}

// WeekVolume is the total volume of one calendar week.
type WeekVolume struct {
	WeekStart time.Time `json:"week_start"`
	Volume    float64   `json:"volume"`
	Sessions  int       `json:"sessions"`
}

// WeeklyVolume sums session volume for the last weeks calendar weeks up to
// and including the week containing now, oldest first. Callers choose which
// sessions count by what they pass in.
func WeeklyVolume(sessions []*models.Session, now time.Time, weeks int, first time.Weekday, loc *time.Location) []WeekVolume {
	if weeks <= 0 {
		return []WeekVolume{}
	}
	current := WeekStart(now, first, loc)
	out := make([]WeekVolume, weeks)
	for i := range out {
		// AddDate keeps week boundaries at local midnight across DST changes.
		out[i].WeekStart = current.AddDate(0, 0, -7*(weeks-1-i))
	}
	for _, s := range sessions {
		for i := range out {
			end := out[i].WeekStart.AddDate(0, 0, 7)
			if !s.Date.Before(out[i].WeekStart) && s.Date.Before(end) {
				out[i].Volume += s.TotalVolume()
				out[i].Sessions++
				break
			}
		}
	}
	return out
}

// Consistency describes training frequency in the current calendar week.
type Consistency struct {
	WeekStart  time.Time `json:"week_start"`
	ActiveDays int       `json:"active_days"`
	Sessions   int       `json:"sessions"`
	Days       [7]bool   `json:"days"`
}

// WeeklyConsistency counts the distinct days with at least one session in
// the week containing now. Days[0] is the configured first weekday.
func WeeklyConsistency(sessions []*models.Session, now time.Time, first time.Weekday, loc *time.Location) Consistency {
	start := WeekStart(now, first, loc)
	c := Consistency{WeekStart: start}
	for _, s := range sessions {
		for d := range c.Days {
			dayStart := start.AddDate(0, 0, d)
			if !s.Date.Before(dayStart) && s.Date.Before(dayStart.AddDate(0, 0, 1)) {
				c.Sessions++
				if !c.Days[d] {
					c.Days[d] = true
					c.ActiveDays++
				}
				break
			}
		}
	}
	return c
}
