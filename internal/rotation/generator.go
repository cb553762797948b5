// Package rotation generates organist schedules by rotating through a
// church's cycles.
//
// A generation loads the church's cycles once, walks every date of the
// requested window in memory and writes all assignments in one batch.
// Cursors live only for the duration of a call; concurrent calls for the
// same church are serialized by the Generator.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapponejosh/organ-rotation/internal/calendar"
	"github.com/zapponejosh/organ-rotation/internal/database"
	"github.com/zapponejosh/organ-rotation/internal/logger"
)

// DefaultLookahead is the number of extra pulls allowed when looking for an
// official organist to play the main role.
const DefaultLookahead = 20

// Store is the persistence the generator needs. *database.DB satisfies it.
type Store interface {
	CycleLoader
	GetChurch(ctx context.Context, churchID string) (*database.Church, error)
	ListActiveServices(ctx context.Context, churchID string) ([]database.Service, error)
	SaveAssignments(ctx context.Context, churchID string, rows []database.Assignment, from, to string) ([]database.AssignmentView, error)
	DeleteAssignmentsFrom(ctx context.Context, churchID, from string) (int64, error)
}

// Request describes one generation.
type Request struct {
	ChurchID string
	Months   int       // 3, 6 or 12
	Start    time.Time // zero means today in the generator's location
	Refs     StartRefs
}

// Result is the persisted outcome of a generation.
type Result struct {
	ChurchID    string                    `json:"church_id"`
	From        string                    `json:"from"`
	To          string                    `json:"to"` // inclusive
	Start       Position                  `json:"start"`
	Assignments []database.AssignmentView `json:"assignments"`
	Unfilled    []Unfilled                `json:"unfilled"`
	Pruned      int64                     `json:"pruned,omitempty"`
}

// Generator runs rotations against a Store.
type Generator struct {
	store     Store
	logger    *slog.Logger
	lookahead int
	loc       *time.Location
	now       func() time.Time
	locks     *churchLocks
}

// Option configures a Generator.
type Option func(*Generator)

// WithLookahead overrides DefaultLookahead. Values below 1 are ignored.
func WithLookahead(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.lookahead = n
		}
	}
}

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, log *slog.Logger, opts ...Option) *Generator {
	if log == nil {
		log = slog.Default()
	}
	g := &Generator{
		store:     store,
		logger:    log,
		lookahead: DefaultLookahead,
		loc:       time.UTC,
		now:       time.Now,
		locks:     newChurchLocks(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds and persists the schedule for req. Re-running it over an
// already populated window with unchanged configuration rewrites the same
// rows.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if !calendar.ValidMonths(req.Months) {
		return nil, fmt.Errorf("%w: got %d", calendar.ErrInvalidMonths, req.Months)
	}

	unlock := g.locks.lock(req.ChurchID)
	defer unlock()

	began := time.Now()
	res, err := g.generate(ctx, req)
	recordRun("generate", runResult(err), time.Since(began).Seconds())
	return res, err
}

// Regenerate deletes the church's assignments on or after req.Start and
// generates the window again from that date. Start is required.
func (g *Generator) Regenerate(ctx context.Context, req Request) (*Result, error) {
	if !calendar.ValidMonths(req.Months) {
		return nil, fmt.Errorf("%w: got %d", calendar.ErrInvalidMonths, req.Months)
	}
	if req.Start.IsZero() {
		return nil, errors.New("regenerate requires a start date")
	}

	unlock := g.locks.lock(req.ChurchID)
	defer unlock()

	began := time.Now()
	res, err := g.regenerate(ctx, req)
	recordRun("regenerate", runResult(err), time.Since(began).Seconds())
	return res, err
}

func (g *Generator) regenerate(ctx context.Context, req Request) (*Result, error) {
	// Validate configuration before pruning so a broken setup keeps the
	// existing calendar.
	if _, err := g.store.GetChurch(ctx, req.ChurchID); err != nil {
		return nil, fmt.Errorf("get church: %w", err)
	}
	if _, err := LoadCycles(ctx, g.store, req.ChurchID, g.logger); err != nil {
		return nil, err
	}

	from := calendar.FormatDate(calendar.DateOf(req.Start, time.UTC))
	pruned, err := g.store.DeleteAssignmentsFrom(ctx, req.ChurchID, from)
	if err != nil {
		return nil, fmt.Errorf("prune assignments: %w", err)
	}
	getMetrics().prunedTotal.Add(float64(pruned))

	res, err := g.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	res.Pruned = pruned
	return res, nil
}

func (g *Generator) generate(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx, g.logger).With(slog.String("church_id", req.ChurchID))

	church, err := g.store.GetChurch(ctx, req.ChurchID)
	if err != nil {
		return nil, fmt.Errorf("get church: %w", err)
	}

	set, err := LoadCycles(ctx, g.store, req.ChurchID, log)
	if err != nil {
		return nil, err
	}

	services, err := g.store.ListActiveServices(ctx, req.ChurchID)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	if len(services) == 0 {
		log.Warn("church has no active services, nothing to schedule")
	}

	start := req.Start
	if start.IsZero() {
		start = calendar.DateOf(g.now(), g.loc)
	}
	cal, err := calendar.NewServiceCalendar(start, req.Months, services)
	if err != nil {
		return nil, err
	}

	startPos := ResolveStart(set.Official, set.Directory(), req.Refs, log)
	resolver := &assignmentResolver{
		church:    church,
		official:  NewCursor(set.Official, startPos),
		youth:     NewCursor(set.Youth, Position{}),
		lookahead: g.lookahead,
		logger:    log,
	}

	var (
		rows     []database.Assignment
		unfilled = []Unfilled{}
		tracks   = make(map[string]database.Track, len(services))
	)
	for _, s := range services {
		tracks[s.ID] = s.Track
	}
	for cal.Next() {
		r, u := resolver.resolveDate(cal.Date(), cal.Services())
		rows = append(rows, r...)
		unfilled = append(unfilled, u...)
	}

	from, until := calendar.Window(start, req.Months)
	res := &Result{
		ChurchID: req.ChurchID,
		From:     calendar.FormatDate(from),
		To:       calendar.FormatDate(until.AddDate(0, 0, -1)),
		Start:    startPos,
		Unfilled: unfilled,
	}

	res.Assignments, err = g.store.SaveAssignments(ctx, req.ChurchID, rows, res.From, res.To)
	if err != nil {
		return nil, fmt.Errorf("save assignments: %w", err)
	}

	m := getMetrics()
	for _, a := range rows {
		m.assignmentsTotal.WithLabelValues(string(tracks[a.ServiceID]), string(a.Role)).Inc()
	}
	for _, u := range unfilled {
		m.unfilledTotal.WithLabelValues(string(u.Role), u.Reason).Inc()
	}

	log.Info("schedule generated",
		slog.String("from", res.From),
		slog.String("to", res.To),
		slog.Int("months", req.Months),
		slog.Int("cycle_index", startPos.Cycle),
		slog.Int("item_index", startPos.Item),
		slog.Int("official_members", resolver.official.Len()),
		slog.Int("youth_members", resolver.youth.Len()),
		slog.Int("assignments", len(rows)),
		slog.Int("unfilled", len(unfilled)),
	)
	if len(unfilled) > 0 {
		log.Warn("schedule has unstaffed roles", slog.Int("unfilled", len(unfilled)))
	}

	return res, nil
}

func runResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "config_error"
	case database.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
