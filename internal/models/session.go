package models

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRPE is returned when a session effort rating is outside 1-5.
var ErrInvalidRPE = errors.New("session rpe must be between 1 and 5")

// UnknownExerciseName is reported for sets detached from their exercise.
const UnknownExerciseName = "Unknown"

// WeightUnit is the unit a set's weight was recorded in.
type WeightUnit string

const (
	Pounds    WeightUnit = "lbs"
	Kilograms WeightUnit = "kg"
)

// ParseWeightUnit maps a stored unit tag, defaulting to pounds.
func ParseWeightUnit(s string) WeightUnit {
	if WeightUnit(s) == Kilograms {
		return Kilograms
	}
	return Pounds
}

func (u WeightUnit) DisplayName() string {
	return string(ParseWeightUnit(string(u)))
}

// SetEntry is one logged set. Both back-references are optional foreign keys:
// a set may outlive the link to its exercise and must stay valid.
type SetEntry struct {
	ID         uuid.UUID  `json:"id"`
	ExerciseID *uuid.UUID `json:"exercise_id,omitempty"`
	SessionID  *uuid.UUID `json:"session_id,omitempty"`
	Weight     float64    `json:"weight"`
	Unit       WeightUnit `json:"unit"`
	Reps       int        `json:"reps"`
	RPE        *int       `json:"rpe,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	OrderIndex int        `json:"order_index"`
}

func (s *SetEntry) EntityID() uuid.UUID { return s.ID }

// Volume is weight × reps in the set's native unit.
func (s *SetEntry) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// DisplayWeight renders the weight with its unit, dropping a zero fraction
// ("135 lbs", "102.5 kg").
func (s *SetEntry) DisplayWeight() string {
	prec := 1
	if s.Weight == float64(int64(s.Weight)) {
		prec = 0
	}
	return strconv.FormatFloat(s.Weight, 'f', prec, 64) + " " + s.Unit.DisplayName()
}

// Session is a single workout. It is completed once CompletedAt is set.
type Session struct {
	ID          uuid.UUID      `json:"id"`
	Date        time.Time      `json:"date"`
	PlanDayName *string        `json:"plan_day_name,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
	RPE         *int           `json:"rpe,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
	PainTags    []string       `json:"pain_tags"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Sets        []*SetEntry    `json:"sets"`
}

// NewSession starts an empty session at date. planDayName may be empty for a
// quick session.
func NewSession(date time.Time, planDayName string) *Session {
	s := &Session{
		ID:       uuid.New(),
		Date:     date,
		PainTags: []string{},
		Sets:     []*SetEntry{},
	}
	if planDayName != "" {
		s.PlanDayName = &planDayName
	}
	return s
}

func (s *Session) EntityID() uuid.UUID { return s.ID }

func (s *Session) IsCompleted() bool {
	return s.CompletedAt != nil
}

// TotalVolume sums weight × reps over all sets.
func (s *Session) TotalVolume() float64 {
	var total float64
	for _, set := range s.Sets {
		total += set.Volume()
	}
	return total
}

// ExerciseCount is the number of distinct exercises referenced by the sets.
// Detached sets are not counted.
func (s *Session) ExerciseCount() int {
	seen := make(map[uuid.UUID]struct{})
	for _, set := range s.Sets {
		if set.ExerciseID != nil {
			seen[*set.ExerciseID] = struct{}{}
		}
	}
	return len(seen)
}

// ExerciseGroup is the sets of one exercise within a session.
type ExerciseGroup struct {
	ExerciseName string      `json:"exercise_name"`
	Sets         []*SetEntry `json:"sets"`
}

// GroupByExercise groups the session's sets by exercise name, ordered by the
// first set of each group. name resolves an exercise ID; sets it cannot
// resolve are grouped under UnknownExerciseName.
func (s *Session) GroupByExercise(name func(uuid.UUID) (string, bool)) []ExerciseGroup {
	index := make(map[string]int)
	var groups []ExerciseGroup
	for _, set := range sortedSets(s.Sets) {
		label := UnknownExerciseName
		if set.ExerciseID != nil {
			if n, ok := name(*set.ExerciseID); ok {
				label = n
			}
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, ExerciseGroup{ExerciseName: label})
		}
		groups[i].Sets = append(groups[i].Sets, set)
	}
	return groups
}

func sortedSets(sets []*SetEntry) []*SetEntry {
	out := make([]*SetEntry, len(sets))
	copy(out, sets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}
