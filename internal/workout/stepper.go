package workout

import "github.com/claude/spotter/internal/models"

const (
	DefaultWeight     = 135
	DefaultReps       = 5
	DefaultWeightStep = 5
)

// RPEOptions are the per-set effort ratings offered while logging.
var RPEOptions = []int{6, 7, 8, 9, 10}

// Stepper holds the weight and reps shown to the user. Weight moves by a
// fixed step and never drops below zero; reps move by one and never drop
// below one.
type Stepper struct {
	Weight     float64           `json:"weight"`
	Reps       int               `json:"reps"`
	Unit       models.WeightUnit `json:"unit"`
	RPE        *int              `json:"rpe,omitempty"`
	WeightStep float64           `json:"weight_step"`
}

func NewStepper(weight float64, reps int, unit models.WeightUnit, step float64) Stepper {
	if step <= 0 {
		step = DefaultWeightStep
	}
	if unit == "" {
		unit = models.Pounds
	}
	return Stepper{Weight: max(weight, 0), Reps: max(reps, 1), Unit: unit, WeightStep: step}
}

func (s *Stepper) IncreaseWeight() { s.Weight += s.WeightStep }

func (s *Stepper) DecreaseWeight() { s.Weight = max(s.Weight-s.WeightStep, 0) }

func (s *Stepper) IncreaseReps() { s.Reps++ }

func (s *Stepper) DecreaseReps() { s.Reps = max(s.Reps-1, 1) }

// SelectRPE sets or, with nil, clears the effort rating for the next set.
func (s *Stepper) SelectRPE(rpe *int) { s.RPE = rpe }

// Input returns exactly what the stepper displays as a set to log.
func (s Stepper) Input() SetInput {
	in := SetInput{Weight: s.Weight, Unit: s.Unit, Reps: s.Reps}
	if s.RPE != nil {
		rpe := *s.RPE
		in.RPE = &rpe
	}
	return in
}
