package data

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/teambition/rrule-go"
	_ "modernc.org/sqlite"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

const maxOccurrencesPerSeries = 2000

// CalendarStore is a local SQLite calendar. Recurring series are stored once
// with their RRULE and expanded on read; removed occurrences are kept as
// exception dates.
type CalendarStore struct {
	db      *sql.DB
	loc     *time.Location
	linkFmt string

	mu      sync.Mutex
	entropy *rand.Rand
}

type eventRow struct {
	id          string
	title       string
	description string
	location    string
	start       time.Time
	end         time.Time
	allDay      bool
	rrule       string
}

// NewCalendarStore opens or creates the calendar database. linkFmt, when
// set, is a printf pattern turning an event id into an external link.
func NewCalendarStore(dbPath string, loc *time.Location, linkFmt string) (*CalendarStore, error) {
	if loc == nil {
		loc = time.Local
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &CalendarStore{
		db:      db,
		loc:     loc,
		linkFmt: linkFmt,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *CalendarStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL DEFAULT '',
		start_at    INTEGER NOT NULL,
		end_at      INTEGER NOT NULL,
		all_day     INTEGER NOT NULL DEFAULT 0,
		rrule       TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at);
	CREATE TABLE IF NOT EXISTS exdates (
		series_id TEXT NOT NULL,
		start_at  INTEGER NOT NULL,
		PRIMARY KEY (series_id, start_at)
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *CalendarStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Close closes the database
func (s *CalendarStore) Close() error {
	return s.db.Close()
}

// Create creates a single event
func (s *CalendarStore) Create(ctx context.Context, spec domain.EventSpec) (*domain.CalendarEventRef, error) {
	return s.insert(ctx, spec, "")
}

// CreateRecurring creates a series; rule is an RRULE value without DTSTART
func (s *CalendarStore) CreateRecurring(ctx context.Context, spec domain.EventSpec, rule string) (*domain.CalendarEventRef, error) {
	if _, err := rrule.StrToROption(rule); err != nil {
		return nil, fmt.Errorf("invalid rrule %q: %w", rule, err)
	}
	return s.insert(ctx, spec, rule)
}

func (s *CalendarStore) insert(ctx context.Context, spec domain.EventSpec, rule string) (*domain.CalendarEventRef, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !spec.End.After(spec.Start) {
		return nil, fmt.Errorf("end %s is not after start %s", spec.End, spec.Start)
	}

	row := eventRow{
		id:          s.newID(),
		title:       spec.Title,
		description: spec.Description,
		location:    spec.Location,
		start:       spec.Start,
		end:         spec.End,
		allDay:      spec.IsAllDay,
		rrule:       rule,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, location, start_at, end_at, all_day, rrule, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.id, row.title, row.description, row.location, row.start.Unix(), row.end.Unix(), row.allDay, row.rrule, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return s.toRef(row, row.start, row.id), nil
}

func (s *CalendarStore) toRef(row eventRow, start time.Time, id string) *domain.CalendarEventRef {
	dur := row.end.Sub(row.start)
	ref := &domain.CalendarEventRef{
		ID:             id,
		Title:          row.title,
		Start:          start.In(s.loc),
		End:            start.Add(dur).In(s.loc),
		IsAllDay:       row.allDay,
		Location:       row.location,
		Description:    row.description,
		RecurrenceRule: row.rrule,
	}
	if row.rrule != "" {
		ref.SeriesID = row.id
	}
	if s.linkFmt != "" {
		ref.ExternalLink = fmt.Sprintf(s.linkFmt, id)
	}
	return ref
}

func (s *CalendarStore) scanRows(rows *sql.Rows) ([]eventRow, error) {
	defer rows.Close()
	var out []eventRow
	for rows.Next() {
		var r eventRow
		var start, end int64
		if err := rows.Scan(&r.id, &r.title, &r.description, &r.location, &start, &end, &r.allDay, &r.rrule); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		r.start = time.Unix(start, 0).In(s.loc)
		r.end = time.Unix(end, 0).In(s.loc)
		out = append(out, r)
	}
	return out, rows.Err()
}

const eventColumns = `id, title, description, location, start_at, end_at, all_day, rrule`

func (s *CalendarStore) getRow(ctx context.Context, id string) (*eventRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	list, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *CalendarStore) exdates(ctx context.Context, seriesID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_at FROM exdates WHERE series_id = ?`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exdates: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan exdate: %w", err)
		}
		out = append(out, time.Unix(ts, 0).In(s.loc))
	}
	return out, rows.Err()
}

// occurrences expands a series into starts overlapping [from, to)
func (s *CalendarStore) occurrences(ctx context.Context, row eventRow, from, to time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(row.rrule)
	if err != nil {
		return nil, fmt.Errorf("series %s: invalid rrule: %w", row.id, err)
	}
	opt.Dtstart = row.start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", row.id, err)
	}

	set := &rrule.Set{}
	set.RRule(rule)
	ex, err := s.exdates(ctx, row.id)
	if err != nil {
		return nil, err
	}
	for _, t := range ex {
		set.ExDate(t)
	}

	dur := row.end.Sub(row.start)
	starts := set.Between(from.Add(-dur).In(s.loc), to.In(s.loc), true)
	out := starts[:0]
	for _, st := range starts {
		if st.Add(dur).After(from) && st.Before(to) {
			out = append(out, st)
		}
		if len(out) == maxOccurrencesPerSeries {
			break
		}
	}
	return out, nil
}

// Search lists events and expanded occurrences overlapping [start, end)
// whose title contains keyword
func (s *CalendarStore) Search(ctx context.Context, keyword string, start, end time.Time) ([]domain.CalendarEventRef, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE (instr(lower(title), ?) > 0 OR ? = '')
		  AND ((rrule = '' AND start_at < ? AND end_at > ?) OR (rrule != '' AND start_at < ?))
		ORDER BY start_at
	`, kw, kw, end.Unix(), start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	list, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}

	var out []domain.CalendarEventRef
	for _, row := range list {
		if row.rrule == "" {
			out = append(out, *s.toRef(row, row.start, row.id))
			continue
		}
		starts, err := s.occurrences(ctx, row, start, end)
		if err != nil {
			fmt.Printf("[Calendar] Skipping series %s: %v\n", row.id, err)
			continue
		}
		for _, st := range starts {
			out = append(out, *s.toRef(row, st, domain.OccurrenceID(row.id, st)))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// resolve finds a single event, a series master, or one occurrence
func (s *CalendarStore) resolve(ctx context.Context, id string) (*eventRow, *time.Time, error) {
	row, err := s.getRow(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if row != nil {
		return row, nil, nil
	}

	seriesID, day, ok := domain.SplitOccurrenceID(id)
	if !ok {
		return nil, nil, fmt.Errorf("event %s: %w", id, domain.ErrEventGone)
	}
	row, err = s.getRow(ctx, seriesID)
	if err != nil {
		return nil, nil, err
	}
	if row == nil || row.rrule == "" {
		return nil, nil, fmt.Errorf("event %s: %w", id, domain.ErrEventGone)
	}

	date, err := time.ParseInLocation("20060102", day, s.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("event %s: %w", id, domain.ErrEventGone)
	}
	starts, err := s.occurrences(ctx, *row, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, err
	}
	for _, st := range starts {
		if domain.OccurrenceID(row.id, st) == id {
			return row, &st, nil
		}
	}
	return nil, nil, fmt.Errorf("event %s: %w", id, domain.ErrEventGone)
}

// GetByID returns an event, a series master or one occurrence
func (s *CalendarStore) GetByID(ctx context.Context, id string) (*domain.CalendarEventRef, error) {
	row, occ, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ != nil {
		return s.toRef(*row, *occ, id), nil
	}
	return s.toRef(*row, row.start, row.id), nil
}

// GetSeriesByID returns a recurring series
func (s *CalendarStore) GetSeriesByID(ctx context.Context, seriesID string) (*domain.Series, error) {
	row, err := s.getRow(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.rrule == "" {
		return nil, fmt.Errorf("series %s: %w", seriesID, domain.ErrEventGone)
	}
	return &domain.Series{
		ID:             row.id,
		Title:          row.title,
		RecurrenceRule: row.rrule,
		Start:          row.start,
		End:            row.end,
		IsAllDay:       row.allDay,
	}, nil
}

// Update patches an event in place. Patching one occurrence detaches it:
// the occurrence becomes an exception and a standalone event replaces it.
func (s *CalendarStore) Update(ctx context.Context, id string, patch domain.EventPatch) (*domain.CalendarEventRef, error) {
	row, occ, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *row
	if occ != nil {
		dur := row.end.Sub(row.start)
		updated.start, updated.end, updated.rrule = *occ, occ.Add(dur), ""
	}
	if patch.Title != nil {
		updated.title = *patch.Title
	}
	if patch.Location != nil {
		updated.location = *patch.Location
	}
	if patch.Start != nil {
		updated.start = *patch.Start
	}
	if patch.End != nil {
		updated.end = *patch.End
	}
	if !updated.end.After(updated.start) {
		return nil, fmt.Errorf("end %s is not after start %s", updated.end, updated.start)
	}

	if occ != nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO exdates (series_id, start_at) VALUES (?, ?)`, row.id, occ.Unix()); err != nil {
			return nil, fmt.Errorf("failed to add exdate: %w", err)
		}
		updated.id = s.newID()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (id, title, description, location, start_at, end_at, all_day, rrule, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)
		`, updated.id, updated.title, updated.description, updated.location, updated.start.Unix(), updated.end.Unix(), updated.allDay, time.Now().Unix())
		if err != nil {
			return nil, fmt.Errorf("failed to insert detached event: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return s.toRef(updated, updated.start, updated.id), nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET title = ?, location = ?, start_at = ?, end_at = ? WHERE id = ?
	`, updated.title, updated.location, updated.start.Unix(), updated.end.Unix(), updated.id)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return s.toRef(updated, updated.start, updated.id), nil
}

// Delete deletes an event; deleting an occurrence records an exception
func (s *CalendarStore) Delete(ctx context.Context, id string) error {
	row, occ, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if occ != nil {
		_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO exdates (series_id, start_at) VALUES (?, ?)`, row.id, occ.Unix())
		if err != nil {
			return fmt.Errorf("failed to add exdate: %w", err)
		}
		return nil
	}
	return s.DeleteSeries(ctx, row.id)
}

// DeleteSeries deletes a series with its exceptions, or a single event
func (s *CalendarStore) DeleteSeries(ctx context.Context, seriesID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, seriesID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", seriesID, domain.ErrEventGone)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exdates WHERE series_id = ?`, seriesID); err != nil {
		return fmt.Errorf("failed to delete exdates: %w", err)
	}
	return nil
}

// TruncateSeries ends a series before from by setting UNTIL
func (s *CalendarStore) TruncateSeries(ctx context.Context, seriesID string, from time.Time) error {
	row, err := s.getRow(ctx, seriesID)
	if err != nil {
		return err
	}
	if row == nil || row.rrule == "" {
		return fmt.Errorf("series %s: %w", seriesID, domain.ErrEventGone)
	}
	if !from.After(row.start) {
		return s.DeleteSeries(ctx, seriesID)
	}

	opt, err := rrule.StrToROption(row.rrule)
	if err != nil {
		return fmt.Errorf("series %s: invalid rrule: %w", seriesID, err)
	}
	opt.Count = 0
	opt.Until = from.Add(-time.Second)
	rule := opt.RRuleString()

	if _, err := s.db.ExecContext(ctx, `UPDATE events SET rrule = ? WHERE id = ?`, rule, seriesID); err != nil {
		return fmt.Errorf("failed to truncate series: %w", err)
	}
	return nil
}

// StoredEvent is one stored row: a single event or an unexpanded series
type StoredEvent struct {
	Ref     domain.CalendarEventRef
	ExDates []time.Time
}

// All returns every stored event with series left unexpanded
func (s *CalendarStore) All(ctx context.Context) ([]StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	list, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}

	out := make([]StoredEvent, 0, len(list))
	for _, row := range list {
		ev := StoredEvent{Ref: *s.toRef(row, row.start, row.id)}
		if row.rrule != "" {
			if ev.ExDates, err = s.exdates(ctx, row.id); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
