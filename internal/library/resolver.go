package library

import (
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
)

// Resolver maps exercise names to library records, creating a record the
// first time a name is seen. One Resolver is used per workout so repeated
// names resolve to the same instance even before the insert is saved.
type Resolver struct {
	gw    storage.Gateway
	now   func() time.Time
	cache map[string]*models.Exercise
}

func NewResolver(gw storage.Gateway, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{gw: gw, now: now, cache: make(map[string]*models.Exercise)}
}

// Resolve returns the exercise named exactly name. A missing exercise is
// inserted with modality other and no muscle groups; it becomes durable on the
// gateway's next Save.
func (r *Resolver) Resolve(name string) *models.Exercise {
	if ex, ok := r.cache[name]; ok {
		if _, live := r.gw.Exercise(ex.ID); live {
			return ex
		}
		delete(r.cache, name)
	}

	if found := r.gw.Exercises(storage.ExerciseFilter{Name: name}); len(found) > 0 {
		r.cache[name] = found[0]
		return found[0]
	}

	ex := models.NewExercise(name, r.now())
	r.gw.Insert(ex)
	r.cache[name] = ex
	return ex
}

// Forget drops a cached resolution, used after the insert behind it was
// rolled back.
func (r *Resolver) Forget(name string) {
	delete(r.cache, name)
}
