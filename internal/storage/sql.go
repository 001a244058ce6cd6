package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/google/uuid"
)

var _ Backend = (*SQLBackend)(nil)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLBackend persists the arena in a relational database. SQLite and
// Postgres share the same statements; only placeholders differ.
type SQLBackend struct {
	db      *sql.DB
	dialect dialect
	onClose func()
}

type table struct {
	name    string
	columns []string
}

var (
	exercisesTable = table{"exercises", []string{"id", "name", "muscle_groups", "modality", "notes", "is_custom", "created_at"}}
	sessionsTable  = table{"sessions", []string{"id", "session_date", "plan_day_name", "duration_seconds", "rpe", "notes", "pain_tags", "completed_at"}}
	setsTable      = table{"set_entries", []string{"id", "exercise_id", "session_id", "weight", "unit", "reps", "rpe", "notes", "logged_at", "order_index"}}
	plansTable     = table{"training_plans", []string{"id", "name", "days_per_week", "is_active", "created_at", "notes"}}
	daysTable      = table{"plan_days", []string{"id", "plan_id", "name", "order_index"}}
	plannedTable   = table{"planned_exercises", []string{"id", "plan_day_id", "exercise_name", "sets", "reps", "notes", "order_index", "exercise_id"}}
)

func (t table) selectSQL() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t table) upsertSQL() string {
	updates := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.name,
		strings.Join(t.columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", "),
		strings.Join(updates, ", "),
	)
}

func (t table) deleteSQL() string {
	return "DELETE FROM " + t.name + " WHERE id = ?"
}

// DB exposes the underlying handle.
func (b *SQLBackend) DB() *sql.DB {
	return b.db
}

func (b *SQLBackend) Close() error {
	err := b.db.Close()
	if b.onClose != nil {
		b.onClose()
	}
	return err
}

// rebind rewrites ? placeholders for the backend's dialect.
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != dialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Load reads every row into a flat snapshot.
func (b *SQLBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Exercises, err = loadRows(ctx, b, exercisesTable, scanExercise); err != nil {
		return nil, err
	}
	if snap.Sessions, err = loadRows(ctx, b, sessionsTable, scanSession); err != nil {
		return nil, err
	}
	if snap.Sets, err = loadRows(ctx, b, setsTable, scanSet); err != nil {
		return nil, err
	}
	if snap.Plans, err = loadRows(ctx, b, plansTable, scanPlan); err != nil {
		return nil, err
	}
	if snap.Days, err = loadRows(ctx, b, daysTable, scanDay); err != nil {
		return nil, err
	}
	if snap.PlannedExercises, err = loadRows(ctx, b, plannedTable, scanPlanned); err != nil {
		return nil, err
	}
	return snap, nil
}

// Apply writes a changeset in one transaction.
func (b *SQLBackend) Apply(ctx context.Context, cs Changeset) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range cs.Deletes {
		t, _, err := rowFor(e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, b.rebind(t.deleteSQL()), e.EntityID()); err != nil {
			return fmt.Errorf("deleting from %s: %w", t.name, err)
		}
	}
	for _, e := range cs.Upserts {
		t, args, err := rowFor(e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, b.rebind(t.upsertSQL()), args...); err != nil {
			return fmt.Errorf("upserting into %s: %w", t.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func rowFor(e models.Entity) (table, []any, error) {
	switch v := e.(type) {
	case *models.Exercise:
		groups, err := encodeStrings(v.MuscleGroups)
		if err != nil {
			return table{}, nil, err
		}
		return exercisesTable, []any{v.ID, v.Name, groups, string(v.Modality), v.Notes, v.IsCustom, v.CreatedAt}, nil
	case *models.Session:
		tags, err := encodeStrings(v.PainTags)
		if err != nil {
			return table{}, nil, err
		}
		var seconds *float64
		if v.Duration != nil {
			s := v.Duration.Seconds()
			seconds = &s
		}
		return sessionsTable, []any{v.ID, v.Date, v.PlanDayName, seconds, v.RPE, v.Notes, tags, v.CompletedAt}, nil
	case *models.SetEntry:
		return setsTable, []any{v.ID, v.ExerciseID, v.SessionID, v.Weight, string(v.Unit), v.Reps, v.RPE, v.Notes, v.Timestamp, v.OrderIndex}, nil
	case *models.TrainingPlan:
		return plansTable, []any{v.ID, v.Name, v.DaysPerWeek, v.IsActive, v.CreatedAt, v.Notes}, nil
	case *models.PlanDay:
		return daysTable, []any{v.ID, v.PlanID, v.Name, v.OrderIndex}, nil
	case *models.PlannedExercise:
		return plannedTable, []any{v.ID, v.PlanDayID, v.ExerciseName, v.Sets, v.Reps, v.Notes, v.OrderIndex, v.ExerciseID}, nil
	}
	return table{}, nil, fmt.Errorf("unsupported entity %T", e)
}

type scanner interface {
	Scan(dest ...any) error
}

func loadRows[T any](ctx context.Context, b *SQLBackend, t table, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := b.db.QueryContext(ctx, t.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.name, err)
	}
	return out, nil
}

func scanExercise(row scanner) (*models.Exercise, error) {
	var (
		e        models.Exercise
		groups   string
		modality string
		notes    sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Name, &groups, &modality, &notes, &e.IsCustom, &e.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.MuscleGroups, err = decodeStrings(groups); err != nil {
		return nil, err
	}
	e.Modality = models.ParseModality(modality)
	e.Notes = nullString(notes)
	return &e, nil
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		s         models.Session
		dayName   sql.NullString
		seconds   sql.NullFloat64
		rpe       sql.NullInt64
		notes     sql.NullString
		tags      string
		completed sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Date, &dayName, &seconds, &rpe, &notes, &tags, &completed); err != nil {
		return nil, err
	}
	var err error
	if s.PainTags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	s.PlanDayName = nullString(dayName)
	s.RPE = nullInt(rpe)
	s.Notes = nullString(notes)
	if seconds.Valid {
		d := time.Duration(seconds.Float64 * float64(time.Second))
		s.Duration = &d
	}
	if completed.Valid {
		t := completed.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func scanSet(row scanner) (*models.SetEntry, error) {
	var (
		se       models.SetEntry
		exercise uuid.NullUUID
		session  uuid.NullUUID
		unit     string
		rpe      sql.NullInt64
		notes    sql.NullString
	)
	if err := row.Scan(&se.ID, &exercise, &session, &se.Weight, &unit, &se.Reps, &rpe, &notes, &se.Timestamp, &se.OrderIndex); err != nil {
		return nil, err
	}
	se.ExerciseID = nullUUID(exercise)
	se.SessionID = nullUUID(session)
	se.Unit = models.ParseWeightUnit(unit)
	se.RPE = nullInt(rpe)
	se.Notes = nullString(notes)
	return &se, nil
}

func scanPlan(row scanner) (*models.TrainingPlan, error) {
	var (
		p     models.TrainingPlan
		notes sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.DaysPerWeek, &p.IsActive, &p.CreatedAt, &notes); err != nil {
		return nil, err
	}
	p.Notes = nullString(notes)
	return &p, nil
}

func scanDay(row scanner) (*models.PlanDay, error) {
	var (
		d    models.PlanDay
		plan uuid.NullUUID
	)
	if err := row.Scan(&d.ID, &plan, &d.Name, &d.OrderIndex); err != nil {
		return nil, err
	}
	d.PlanID = nullUUID(plan)
	return &d, nil
}

func scanPlanned(row scanner) (*models.PlannedExercise, error) {
	var (
		pe       models.PlannedExercise
		day      uuid.NullUUID
		notes    sql.NullString
		exercise uuid.NullUUID
	)
	if err := row.Scan(&pe.ID, &day, &pe.ExerciseName, &pe.Sets, &pe.Reps, &notes, &pe.OrderIndex, &exercise); err != nil {
		return nil, err
	}
	pe.PlanDayID = nullUUID(day)
	pe.Notes = nullString(notes)
	pe.ExerciseID = nullUUID(exercise)
	return &pe, nil
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding string list: %w", err)
	}
	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decoding string list: %w", err)
	}
	return out, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullUUID(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	return &v.UUID
}
