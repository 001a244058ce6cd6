package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/claude/spotter/internal/ingest"
	"github.com/claude/spotter/internal/library"
	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"github.com/google/uuid"
)

// Provider imports Alpha Progression CSV exports as completed sessions.
type Provider struct {
	gw  storage.Gateway
	log *slog.Logger
	now func() time.Time
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(gw storage.Gateway, log *slog.Logger, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{gw: gw, log: log, now: now}
}

// Ingest parses a CSV export and stores every session not already present.
// Warm-up sets are dropped. All sessions are saved together; on failure
// nothing is kept.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	resolver := library.NewResolver(p.gw, p.now)

	for _, in := range sessions {
		if p.exists(in) {
			result.SessionsSkipped++
			p.log.Debug("skipping imported session", "title", in.Title, "date", in.Date)
			continue
		}

		s := models.NewSession(in.Date, in.Title)
		if d, ok := ParseDuration(in.Duration); ok {
			s.Duration = &d
		}
		completed := in.Date
		s.CompletedAt = &completed
		p.gw.Insert(s)
		result.SessionsInserted++

		for _, ex := range in.Exercises {
			e, created := p.resolve(resolver, ex)
			if created {
				result.ExercisesCreated++
			}
			for _, set := range ex.Sets {
				if set.IsWarmup {
					continue
				}
				result.SetsReceived++
				p.gw.Insert(toSetEntry(e, s, set, in.Date))
				result.SetsInserted++
			}
		}
	}

	if result.SessionsInserted == 0 {
		result.Message = "nothing new to import"
		return result, nil
	}
	if err := p.gw.Save(ctx); err != nil {
		p.gw.Rollback()
		return nil, fmt.Errorf("saving imported sessions: %w", err)
	}

	p.log.Info("alpha import complete",
		"sessions", result.SessionsInserted,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsInserted,
		"new_exercises", result.ExercisesCreated,
	)
	return result, nil
}

// exists reports whether a session with the same title already starts at the
// same instant.
func (p *Provider) exists(in Session) bool {
	to := in.Date.Add(time.Second)
	for _, s := range p.gw.Sessions(storage.SessionQuery{From: &in.Date, To: &to}) {
		if s.PlanDayName != nil && *s.PlanDayName == in.Title {
			return true
		}
	}
	return false
}

// resolve finds or creates the library exercise. New exercises take their
// modality from the export's equipment column.
func (p *Provider) resolve(r *library.Resolver, ex Exercise) (*models.Exercise, bool) {
	known := len(p.gw.Exercises(storage.ExerciseFilter{Name: ex.Name})) > 0
	e := r.Resolve(ex.Name)
	if known {
		return e, false
	}
	e.Modality = EquipmentModality(ex.Equipment)
	p.gw.Update(e)
	return e, true
}

func toSetEntry(e *models.Exercise, s *models.Session, in Set, at time.Time) *models.SetEntry {
	exID, sessionID := e.ID, s.ID
	set := &models.SetEntry{
		ID:         uuid.New(),
		ExerciseID: &exID,
		SessionID:  &sessionID,
		Weight:     in.WeightKg,
		Unit:       models.Kilograms,
		Reps:       in.Reps,
		Timestamp:  at.Add(time.Duration(len(s.Sets)) * time.Second),
		OrderIndex: len(s.Sets),
	}
	if rpe, ok := rirToRPE(in.RIR); ok {
		set.RPE = &rpe
	}
	if in.IsBodyweightPlus {
		note := "bodyweight +" + set.DisplayWeight()
		set.Notes = &note
	}
	return set
}

// rirToRPE converts reps-in-reserve to the 6-10 effort scale.
func rirToRPE(rir float64) (int, bool) {
	if rir < 0 {
		return 0, false
	}
	rpe := int(math.Round(10 - rir))
	return max(rpe, 6), true
}

var equipmentModalities = map[string]models.Modality{
	"barbell":       models.ModalityBarbell,
	"ez bar":        models.ModalityBarbell,
	"trap bar":      models.ModalityBarbell,
	"dumbbell":      models.ModalityDumbbell,
	"dumbbells":     models.ModalityDumbbell,
	"kettlebell":    models.ModalityDumbbell,
	"machine":       models.ModalityMachine,
	"smith machine": models.ModalityMachine,
	"cable":         models.ModalityCable,
	"cables":        models.ModalityCable,
	"bodyweight":    models.ModalityBodyweight,
}

// EquipmentModality maps an export equipment label to a modality; unknown
// labels become other.
func EquipmentModality(equipment string) models.Modality {
	if m, ok := equipmentModalities[strings.ToLower(strings.TrimSpace(equipment))]; ok {
		return m
	}
	return models.ModalityOther
}
