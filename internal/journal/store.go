// Package journal keeps a sqlite history of queue events so that help-centre
// activity can be reviewed after the fact. It records what happened; it is
// never read back into a running queue.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

const defaultBuffer = 256

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        TEXT PRIMARY KEY,
	type      TEXT NOT NULL,
	student   TEXT NOT NULL,
	course    TEXT NOT NULL,
	ta        TEXT NOT NULL DEFAULT '',
	waited_ms INTEGER NOT NULL DEFAULT 0,
	helped_ms INTEGER NOT NULL DEFAULT 0,
	at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_course ON events(course);
CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
`

// Record is one stored event.
type Record struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Student string        `json:"student"`
	Course  string        `json:"course"`
	Ta      string        `json:"ta,omitempty"`
	Waited  time.Duration `json:"waited_ns"`
	Helped  time.Duration `json:"helped_ns"`
	At      time.Time     `json:"at"`
}

// Summary aggregates the journal for one course.
type Summary struct {
	Course   string        `json:"course"`
	Joined   int           `json:"joined"`
	Assigned int           `json:"assigned"`
	Finished int           `json:"finished"`
	GaveUp   int           `json:"gave_up"`
	AvgWait  time.Duration `json:"avg_wait_ns"`
	AvgHelp  time.Duration `json:"avg_help_ns"`
}

type op struct {
	rec  *Record
	sync chan struct{}
}

// Store writes events through a single writer goroutine. Observe never
// blocks the caller: when the buffer is full the event is dropped and logged.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	ops    chan op
	wg     sync.WaitGroup
}

// Open opens (creating if needed) the journal at path. ":memory:" is accepted
// for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection so ":memory:" is a single database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		ops:    make(chan op, defaultBuffer),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for o := range s.ops {
		if o.sync != nil {
			close(o.sync)
			continue
		}
		if err := s.insert(o.rec); err != nil {
			s.logger.Error("journal write failed", "id", o.rec.ID, "type", o.rec.Type, "error", err)
		}
	}
}

func (s *Store) insert(r *Record) error {
	_, err := s.db.Exec(
		`INSERT INTO events (id, type, student, course, ta, waited_ms, helped_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Type, r.Student, r.Course, r.Ta,
		r.Waited.Milliseconds(), r.Helped.Milliseconds(), r.At.UnixMilli(),
	)
	return err
}

// Observe implements hcq.Observer.
func (s *Store) Observe(ev hcq.Event) {
	rec := &Record{
		ID:      uuid.NewString(),
		Type:    ev.Type.String(),
		Student: ev.Student,
		Course:  ev.Course,
		Ta:      ev.Ta,
		Waited:  ev.Waited,
		Helped:  ev.Helped,
		At:      ev.At,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ops <- op{rec: rec}:
	default:
		s.logger.Warn("journal buffer full, dropping event", "type", rec.Type, "student", rec.Student)
	}
}

// Sync blocks until every event observed before the call has been written.
func (s *Store) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	select {
	case s.ops <- op{sync: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ops)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, student, course, ta, waited_ms, helped_ms, at
		 FROM events ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			r              Record
			waited, helped int64
			at             int64
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.Student, &r.Course, &r.Ta, &waited, &helped, &at); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Waited = time.Duration(waited) * time.Millisecond
		r.Helped = time.Duration(helped) * time.Millisecond
		r.At = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// CourseSummary aggregates every event stored for code. A course with no
// events yields a zero Summary.
func (s *Store) CourseSummary(ctx context.Context, code string) (Summary, error) {
	sum := Summary{Course: code}
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*), COALESCE(AVG(waited_ms), 0), COALESCE(AVG(helped_ms), 0)
		 FROM events WHERE course = ? GROUP BY type`, code)
	if err != nil {
		return sum, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ            string
			n              int
			waited, helped float64
		)
		if err := rows.Scan(&typ, &n, &waited, &helped); err != nil {
			return sum, fmt.Errorf("scan summary: %w", err)
		}
		switch typ {
		case hcq.EventJoined.String():
			sum.Joined = n
		case hcq.EventAssigned.String():
			sum.Assigned = n
			sum.AvgWait = time.Duration(waited * float64(time.Millisecond))
		case hcq.EventFinished.String():
			sum.Finished = n
			sum.AvgHelp = time.Duration(helped * float64(time.Millisecond))
		case hcq.EventGaveUp.String():
			sum.GaveUp = n
		}
	}
	return sum, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
