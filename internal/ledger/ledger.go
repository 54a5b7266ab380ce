// Package ledger records observed resource yields, append-only, and persists
// them to SQLite at a bounded rate so disk I/O never paces the capture loop.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	ended_at    TEXT,
	stop_reason TEXT
);

CREATE TABLE IF NOT EXISTS resource_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL,
	resource  TEXT NOT NULL,
	delta     INTEGER NOT NULL,
	state     TEXT NOT NULL,
	observed  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Entry is one observed resource delta. Entries are only ever appended.
type Entry struct {
	Resource string
	Delta    int64
	State    string // state label whose confirmation produced the yield
	Observed time.Time
}

// Ledger buffers entries in memory and writes them through to SQLite when
// Tick sees the flush interval has elapsed, or on Close. One Ledger belongs
// to one run; the run row is opened in New and closed in Close.
type Ledger struct {
	RunID string

	db            *sql.DB
	flushInterval time.Duration
	lastFlush     time.Time

	pending []Entry
	totals  map[string]int64
}

// New opens (creating if needed) the ledger database and starts a new run row.
func New(dbPath string, flushInterval time.Duration) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("ledger pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ledger migrate: %w", err)
	}

	runID := uuid.New().String()
	now := time.Now().UTC()
	if _, err := db.Exec(
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("ledger start run: %w", err)
	}

	return &Ledger{
		RunID:         runID,
		db:            db,
		flushInterval: flushInterval,
		lastFlush:     now,
		totals:        make(map[string]int64),
	}, nil
}

// Append records one resource delta in the buffer. It never blocks on disk.
func (l *Ledger) Append(e Entry) {
	if e.Observed.IsZero() {
		e.Observed = time.Now().UTC()
	}
	l.pending = append(l.pending, e)
	l.totals[e.Resource] += e.Delta
}

// Tick flushes the buffer if the flush interval has elapsed since the last
// write. The supervisor calls it once per cycle; the cadence runs entirely
// on the caller's clock.
func (l *Ledger) Tick(now time.Time) error {
	if now.Sub(l.lastFlush) < l.flushInterval {
		return nil
	}
	return l.flushAt(now)
}

// Flush writes all buffered entries in one transaction.
func (l *Ledger) Flush() error {
	return l.flushAt(time.Now())
}

func (l *Ledger) flushAt(now time.Time) error {
	l.lastFlush = now
	if len(l.pending) == 0 {
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("ledger flush begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range l.pending {
		if _, err := tx.Exec(
			`INSERT INTO resource_events (run_id, resource, delta, state, observed)
			 VALUES (?, ?, ?, ?, ?)`,
			l.RunID, e.Resource, e.Delta, e.State, e.Observed.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("ledger flush insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger flush commit: %w", err)
	}
	l.pending = l.pending[:0]
	return nil
}

// Totals returns the per-resource sums observed during this run.
func (l *Ledger) Totals() map[string]int64 {
	out := make(map[string]int64, len(l.totals))
	for k, v := range l.totals {
		out[k] = v
	}
	return out
}

// Pending returns how many entries await a flush.
func (l *Ledger) Pending() int { return len(l.pending) }

// Close flushes remaining entries, closes out the run row with the stop
// reason, and releases the database.
func (l *Ledger) Close(stopReason string) error {
	flushErr := l.Flush()

	if _, err := l.db.Exec(
		`UPDATE runs SET ended_at = ?, stop_reason = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), stopReason, l.RunID,
	); err != nil && flushErr == nil {
		flushErr = fmt.Errorf("ledger end run: %w", err)
	}

	if err := l.db.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}
