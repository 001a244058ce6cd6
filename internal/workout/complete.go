package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
)

// ErrNotFinished is returned when feedback is given for a workout that was never finished.
var ErrNotFinished = errors.New("session has not been finished")

// DefaultRPE is the session effort preselected for feedback.
const DefaultRPE = 3

// SuggestedPainTags is the fixed vocabulary offered for post-workout pain notes.
var SuggestedPainTags = []string{
	"Shoulders", "Lower Back", "Upper Back", "Knees",
	"Elbows", "Wrists", "Hips", "Neck",
}

// Feedback is the subjective rating recorded when a session is completed.
type Feedback struct {
	RPE      int      `json:"rpe"`
	PainTags []string `json:"pain_tags"`
	Notes    string   `json:"notes"`
}

func (f Feedback) Validate() error {
	if f.RPE < 1 || f.RPE > 5 {
		return models.ErrInvalidRPE
	}
	return nil
}

// Complete records feedback on a finished session and marks it completed at
// now. Completing again overwrites the feedback and the timestamp.
func Complete(ctx context.Context, gw storage.Gateway, s *models.Session, fb Feedback, now time.Time) error {
	if s.Duration == nil {
		return ErrNotFinished
	}
	if err := fb.Validate(); err != nil {
		return err
	}

	prev := *s
	rpe := fb.RPE
	s.RPE = &rpe
	s.PainTags = dedupe(fb.PainTags)
	s.Notes = nil
	if fb.Notes != "" {
		notes := fb.Notes
		s.Notes = &notes
	}
	completed := now
	s.CompletedAt = &completed

	gw.Update(s)
	if err := gw.Save(ctx); err != nil {
		gw.Rollback()
		s.RPE, s.PainTags, s.Notes, s.CompletedAt = prev.RPE, prev.PainTags, prev.Notes, prev.CompletedAt
		return fmt.Errorf("completing session: %w", err)
	}
	return nil
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
