package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/claude/spotter/internal/analytics"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/trends"
)

// SessionFilter narrows list_sessions.
type SessionFilter struct {
	Start         *time.Time
	End           *time.Time
	CompletedOnly bool
	Limit         int
}

// DataSource abstracts the data layer for MCP tools. Local reads the
// in-process gateway; HTTPClient calls a remote Spotter REST API.
type DataSource interface {
	Today(ctx context.Context) (*trends.TodayReport, error)
	WeeklyVolume(ctx context.Context, weeks int) ([]analytics.WeekVolume, error)
	Consistency(ctx context.Context) (*analytics.Consistency, error)
	E1RM(ctx context.Context, exercise, formula string) (*trends.E1RMReport, error)
	Sessions(ctx context.Context, f SessionFilter) ([]trends.SessionSummary, error)
}

// Local answers tool calls from a gateway in the same process.
type Local struct {
	gw  storage.Gateway
	cal trends.Calendar
	now func() time.Time
	mu  sync.Locker
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal wraps gw. mu is held for every read and must be the lock the
// rest of the process mutates gw under; nil gives the source its own.
func NewLocal(gw storage.Gateway, cal trends.Calendar, mu sync.Locker) *Local {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Local{gw: gw, cal: cal, now: time.Now, mu: mu}
}

func (l *Local) Today(context.Context) (*trends.TodayReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := trends.Today(l.gw)
	return &r, nil
}

func (l *Local) WeeklyVolume(_ context.Context, weeks int) ([]analytics.WeekVolume, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return trends.WeeklyVolume(l.gw, l.cal, l.now(), weeks), nil
}

func (l *Local) Consistency(context.Context) (*analytics.Consistency, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := trends.Consistency(l.gw, l.cal, l.now())
	return &c, nil
}

func (l *Local) E1RM(_ context.Context, exercise, formula string) (*trends.E1RMReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return trends.E1RM(l.gw, exercise, formula)
}

func (l *Local) Sessions(_ context.Context, f SessionFilter) ([]trends.SessionSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return trends.Sessions(l.gw, storage.SessionQuery{
		CompletedOnly: f.CompletedOnly,
		From:          f.Start,
		To:            f.End,
		Limit:         f.Limit,
	}), nil
}
