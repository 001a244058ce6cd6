package analytics

import (
	"sort"
	"time"

	"github.com/claude/spotter/internal/models"
)

// Formula estimates a one-rep max from a submaximal set.
type Formula func(weight float64, reps int) float64

// Epley: w × (1 + r/30). Singles and non-positive reps return w.
func Epley(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}

// Brzycki: w × 36/(37 − r). Singles, non-positive reps and r ≥ 37 return w.
func Brzycki(weight float64, reps int) float64 {
	if reps <= 1 || reps >= 37 {
		return weight
	}
	return weight * (36 / float64(37-reps))
}

// Estimate is the default formula.
func Estimate(weight float64, reps int) float64 {
	return Epley(weight, reps)
}

// FormulaByName maps "epley" and "brzycki" to their formulas.
func FormulaByName(name string) (Formula, bool) {
	switch name {
	case "", "epley":
		return Epley, true
	case "brzycki":
		return Brzycki, true
	}
	return nil, false
}

// BestEstimate returns the highest estimate across sets, or false when
// there are no sets. A nil formula means Estimate.
func BestEstimate(sets []*models.SetEntry, f Formula) (float64, bool) {
	if len(sets) == 0 {
		return 0, false
	}
	if f == nil {
		f = Estimate
	}
	best := f(sets[0].Weight, sets[0].Reps)
	for _, s := range sets[1:] {
		best = max(best, f(s.Weight, s.Reps))
	}
	return best, true
}

// E1RMPoint is one set's estimate on the progression chart.
type E1RMPoint struct {
	Time   time.Time         `json:"time"`
	E1RM   float64           `json:"e1rm"`
	Weight float64           `json:"weight"`
	Reps   int               `json:"reps"`
	Unit   models.WeightUnit `json:"unit"`
}

// Progression returns per-set estimates ordered by timestamp.
func Progression(sets []*models.SetEntry, f Formula) []E1RMPoint {
	if f == nil {
		f = Estimate
	}
	points := make([]E1RMPoint, 0, len(sets))
	for _, s := range sets {
		points = append(points, E1RMPoint{
			Time:   s.Timestamp,
			E1RM:   f(s.Weight, s.Reps),
			Weight: s.Weight,
			Reps:   s.Reps,
			Unit:   s.Unit,
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}
