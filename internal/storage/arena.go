package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/claude/spotter/internal/models"
	"github.com/google/uuid"
)

var _ Gateway = (*Arena)(nil)

type changeKind int

const (
	upsert changeKind = iota
	remove
)

type change struct {
	kind   changeKind
	entity models.Entity
}

// Arena is the in-memory object graph behind the Gateway. Every fetch hands
// out the same pointers, so an entity is a single instance for the lifetime
// of the arena. Mutations are applied to the graph immediately and recorded
// until Save makes them durable or Rollback reverts them.
type Arena struct {
	mu      sync.Mutex
	backend Backend

	exercises map[uuid.UUID]*models.Exercise
	sessions  map[uuid.UUID]*models.Session
	sets      map[uuid.UUID]*models.SetEntry
	plans     map[uuid.UUID]*models.TrainingPlan
	days      map[uuid.UUID]*models.PlanDay
	planned   map[uuid.UUID]*models.PlannedExercise

	pending []change
	undo    []func()
}

// NewArena returns an empty arena with no durable backing. Save only clears
// the pending changeset.
func NewArena() *Arena {
	return &Arena{
		exercises: make(map[uuid.UUID]*models.Exercise),
		sessions:  make(map[uuid.UUID]*models.Session),
		sets:      make(map[uuid.UUID]*models.SetEntry),
		plans:     make(map[uuid.UUID]*models.TrainingPlan),
		days:      make(map[uuid.UUID]*models.PlanDay),
		planned:   make(map[uuid.UUID]*models.PlannedExercise),
	}
}

// Open loads the backend's rows into a new arena and links children to
// their parents by foreign key.
func Open(ctx context.Context, b Backend) (*Arena, error) {
	snap, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	a := NewArena()
	a.backend = b
	for _, e := range snap.Exercises {
		a.exercises[e.ID] = e
	}
	for _, s := range snap.Sessions {
		s.Sets = nil
		a.sessions[s.ID] = s
	}
	for _, p := range snap.Plans {
		p.Days = nil
		a.plans[p.ID] = p
	}
	for _, d := range snap.Days {
		d.Exercises = nil
		a.days[d.ID] = d
		if d.PlanID != nil {
			if p, ok := a.plans[*d.PlanID]; ok {
				p.Days = append(p.Days, d)
			}
		}
	}
	for _, pe := range snap.PlannedExercises {
		a.planned[pe.ID] = pe
		if pe.PlanDayID != nil {
			if d, ok := a.days[*pe.PlanDayID]; ok {
				d.Exercises = append(d.Exercises, pe)
			}
		}
	}
	for _, se := range snap.Sets {
		a.sets[se.ID] = se
		if se.SessionID != nil {
			if s, ok := a.sessions[*se.SessionID]; ok {
				s.Sets = append(s.Sets, se)
			}
		}
	}

	for _, s := range a.sessions {
		slices.SortStableFunc(s.Sets, func(x, y *models.SetEntry) int { return cmp.Compare(x.OrderIndex, y.OrderIndex) })
	}
	for _, p := range a.plans {
		slices.SortStableFunc(p.Days, func(x, y *models.PlanDay) int { return cmp.Compare(x.OrderIndex, y.OrderIndex) })
	}
	for _, d := range a.days {
		slices.SortStableFunc(d.Exercises, func(x, y *models.PlannedExercise) int { return cmp.Compare(x.OrderIndex, y.OrderIndex) })
	}
	return a, nil
}

// Close releases the backend, if any.
func (a *Arena) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

// Insert adds an entity, together with any children it already carries, to
// the graph. A set or day that names a known parent is attached to it.
func (a *Arena) Insert(e models.Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store(e)
}

// Update records the entity's current state for the next Save. Children that
// are not yet in the graph are inserted.
func (a *Arena) Update(e models.Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store(e)
}

// Delete removes an entity and everything it owns. Deleting an exercise also
// removes its sets from their sessions and unlinks planned exercises.
func (a *Arena) Delete(e models.Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch v := e.(type) {
	case *models.Exercise:
		a.deleteExercise(v)
	case *models.Session:
		a.deleteSession(v)
	case *models.SetEntry:
		a.deleteSet(v)
	case *models.TrainingPlan:
		a.deletePlan(v)
	case *models.PlanDay:
		a.deleteDay(v)
	case *models.PlannedExercise:
		a.deletePlanned(v)
	}
}

// Save commits the pending changeset to the backend. On failure the graph is
// left as is so the caller can Rollback.
func (a *Arena) Save(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cs := a.changeset()
	if a.backend != nil && !cs.Empty() {
		if err := a.backend.Apply(ctx, cs); err != nil {
			return fmt.Errorf("%w: applying changeset: %w", ErrStorage, err)
		}
	}
	a.pending = nil
	a.undo = nil
	return nil
}

// Rollback reverts every mutation made since the last successful Save.
func (a *Arena) Rollback() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.undo) - 1; i >= 0; i-- {
		a.undo[i]()
	}
	a.pending = nil
	a.undo = nil
}

// Exercises returns exercises matching f ordered by name, case-insensitively.
func (a *Arena) Exercises(f ExerciseFilter) []*models.Exercise {
	a.mu.Lock()
	defer a.mu.Unlock()

	search := strings.ToLower(f.Search)
	var out []*models.Exercise
	for _, e := range a.exercises {
		if f.Name != "" && e.Name != f.Name {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		if f.Modality != "" && e.Modality != f.Modality {
			continue
		}
		if f.CustomOnly && !e.IsCustom {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y *models.Exercise) int {
		if c := cmp.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name)); c != 0 {
			return c
		}
		return cmp.Compare(x.ID.String(), y.ID.String())
	})
	return out
}

func (a *Arena) Exercise(id uuid.UUID) (*models.Exercise, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.exercises[id]
	return e, ok
}

func (a *Arena) CountExercises() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.exercises)
}

// Sessions returns sessions matching q ordered by date.
func (a *Arena) Sessions(q SessionQuery) []*models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*models.Session
	for _, s := range a.sessions {
		if q.CompletedOnly && !s.IsCompleted() {
			continue
		}
		if q.From != nil && s.Date.Before(*q.From) {
			continue
		}
		if q.To != nil && !s.Date.Before(*q.To) {
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y *models.Session) int {
		c := x.Date.Compare(y.Date)
		if c == 0 {
			c = cmp.Compare(x.ID.String(), y.ID.String())
		}
		if q.Order == Descending {
			return -c
		}
		return c
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (a *Arena) Session(id uuid.UUID) (*models.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	return s, ok
}

// SetsForExercise returns every set logged against the exercise ordered by
// timestamp.
func (a *Arena) SetsForExercise(id uuid.UUID) []*models.SetEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*models.SetEntry
	for _, s := range a.sets {
		if s.ExerciseID != nil && *s.ExerciseID == id {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(x, y *models.SetEntry) int {
		if c := x.Timestamp.Compare(y.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(x.OrderIndex, y.OrderIndex)
	})
	return out
}

// Plans returns plans matching f, newest first.
func (a *Arena) Plans(f PlanFilter) []*models.TrainingPlan {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*models.TrainingPlan
	for _, p := range a.plans {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y *models.TrainingPlan) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID.String(), y.ID.String())
	})
	return out
}

func (a *Arena) Plan(id uuid.UUID) (*models.TrainingPlan, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.plans[id]
	return p, ok
}

func (a *Arena) store(e models.Entity) {
	switch v := e.(type) {
	case *models.Exercise:
		put(a, a.exercises, v.ID, v)
	case *models.Session:
		put(a, a.sessions, v.ID, v)
		for _, s := range v.Sets {
			if s.SessionID == nil {
				id := v.ID
				s.SessionID = &id
			}
			if _, ok := a.sets[s.ID]; !ok {
				put(a, a.sets, s.ID, s)
				a.track(upsert, s)
			}
		}
	case *models.SetEntry:
		put(a, a.sets, v.ID, v)
		if v.SessionID != nil {
			if s, ok := a.sessions[*v.SessionID]; ok {
				attach(a, &s.Sets, v)
			}
		}
	case *models.TrainingPlan:
		put(a, a.plans, v.ID, v)
		a.track(upsert, v)
		for _, d := range v.Days {
			if d.PlanID == nil {
				id := v.ID
				d.PlanID = &id
			}
			a.store(d)
		}
		return
	case *models.PlanDay:
		put(a, a.days, v.ID, v)
		if v.PlanID != nil {
			if p, ok := a.plans[*v.PlanID]; ok {
				attach(a, &p.Days, v)
			}
		}
		a.track(upsert, v)
		for _, pe := range v.Exercises {
			if pe.PlanDayID == nil {
				id := v.ID
				pe.PlanDayID = &id
			}
			a.store(pe)
		}
		return
	case *models.PlannedExercise:
		put(a, a.planned, v.ID, v)
		if v.PlanDayID != nil {
			if d, ok := a.days[*v.PlanDayID]; ok {
				attach(a, &d.Exercises, v)
			}
		}
	default:
		return
	}
	a.track(upsert, e)
}

func (a *Arena) deleteExercise(e *models.Exercise) {
	for _, s := range a.sets {
		if s.ExerciseID != nil && *s.ExerciseID == e.ID {
			a.deleteSet(s)
		}
	}
	for _, pe := range a.planned {
		if pe.ExerciseID != nil && *pe.ExerciseID == e.ID {
			prev := pe.ExerciseID
			pe.ExerciseID = nil
			a.undo = append(a.undo, func() { pe.ExerciseID = prev })
			a.track(upsert, pe)
		}
	}
	drop(a, a.exercises, e.ID)
	a.track(remove, e)
}

func (a *Arena) deleteSession(s *models.Session) {
	for _, se := range slices.Clone(s.Sets) {
		a.deleteSet(se)
	}
	for _, se := range a.sets {
		if se.SessionID != nil && *se.SessionID == s.ID {
			a.deleteSet(se)
		}
	}
	drop(a, a.sessions, s.ID)
	a.track(remove, s)
}

func (a *Arena) deleteSet(se *models.SetEntry) {
	if se.SessionID != nil {
		if s, ok := a.sessions[*se.SessionID]; ok {
			detach(a, &s.Sets, se)
		}
	}
	drop(a, a.sets, se.ID)
	a.track(remove, se)
}

func (a *Arena) deletePlan(p *models.TrainingPlan) {
	for _, d := range slices.Clone(p.Days) {
		a.deleteDay(d)
	}
	drop(a, a.plans, p.ID)
	a.track(remove, p)
}

func (a *Arena) deleteDay(d *models.PlanDay) {
	for _, pe := range slices.Clone(d.Exercises) {
		a.deletePlanned(pe)
	}
	if d.PlanID != nil {
		if p, ok := a.plans[*d.PlanID]; ok {
			detach(a, &p.Days, d)
		}
	}
	drop(a, a.days, d.ID)
	a.track(remove, d)
}

func (a *Arena) deletePlanned(pe *models.PlannedExercise) {
	if pe.PlanDayID != nil {
		if d, ok := a.days[*pe.PlanDayID]; ok {
			detach(a, &d.Exercises, pe)
		}
	}
	drop(a, a.planned, pe.ID)
	a.track(remove, pe)
}

func (a *Arena) track(kind changeKind, e models.Entity) {
	a.pending = append(a.pending, change{kind: kind, entity: e})
}

// changeset collapses pending changes to the last change per entity.
func (a *Arena) changeset() Changeset {
	last := make(map[uuid.UUID]change, len(a.pending))
	var order []uuid.UUID
	for _, c := range a.pending {
		id := c.entity.EntityID()
		if _, ok := last[id]; !ok {
			order = append(order, id)
		}
		last[id] = c
	}

	var cs Changeset
	for _, id := range order {
		c := last[id]
		if c.kind == remove {
			cs.Deletes = append(cs.Deletes, c.entity)
		} else {
			cs.Upserts = append(cs.Upserts, c.entity)
		}
	}
	slices.SortStableFunc(cs.Upserts, func(x, y models.Entity) int { return cmp.Compare(rank(x), rank(y)) })
	slices.SortStableFunc(cs.Deletes, func(x, y models.Entity) int { return cmp.Compare(rank(y), rank(x)) })
	return cs
}

// rank orders entity kinds so that parents precede the rows referencing them.
func rank(e models.Entity) int {
	switch e.(type) {
	case *models.Exercise, *models.TrainingPlan:
		return 0
	case *models.Session, *models.PlanDay:
		return 1
	default:
		return 2
	}
}

func put[T any](a *Arena, m map[uuid.UUID]T, id uuid.UUID, v T) {
	prev, existed := m[id]
	m[id] = v
	a.undo = append(a.undo, func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

func drop[T any](a *Arena, m map[uuid.UUID]T, id uuid.UUID) {
	prev, existed := m[id]
	if !existed {
		return
	}
	delete(m, id)
	a.undo = append(a.undo, func() { m[id] = prev })
}

func attach[T comparable](a *Arena, s *[]T, v T) {
	if slices.Contains(*s, v) {
		return
	}
	*s = append(*s, v)
	a.undo = append(a.undo, func() {
		if i := slices.Index(*s, v); i >= 0 {
			*s = slices.Delete(*s, i, i+1)
		}
	})
}

func detach[T comparable](a *Arena, s *[]T, v T) {
	i := slices.Index(*s, v)
	if i < 0 {
		return
	}
	*s = slices.Delete(*s, i, i+1)
	a.undo = append(a.undo, func() {
		*s = slices.Insert(*s, min(i, len(*s)), v)
	})
}
