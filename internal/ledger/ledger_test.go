package ledger

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openLedger(t *testing.T, flush time.Duration) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.db")
	l, err := New(path, flush)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l, path
}

func countEvents(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM resource_events`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestAppendBuffersWithoutWriting(t *testing.T) {
	l, _ := openLedger(t, time.Hour)
	defer l.Close("test")

	l.Append(Entry{Resource: "crystals", Delta: 10, State: "reward"})
	l.Append(Entry{Resource: "crystals", Delta: 5, State: "reward"})

	if l.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", l.Pending())
	}
	// Flush interval has not elapsed: Tick must not touch the database.
	if err := l.Tick(time.Now()); err != nil {
		t.Fatal(err)
	}
	if l.Pending() != 2 {
		t.Fatalf("tick flushed early, pending = %d", l.Pending())
	}
}

func TestTickFlushesAfterInterval(t *testing.T) {
	l, path := openLedger(t, 10*time.Millisecond)
	l.Append(Entry{Resource: "metal", Delta: 3, State: "grind"})

	if err := l.Tick(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if l.Pending() != 0 {
		t.Fatalf("pending = %d after flush", l.Pending())
	}
	if err := l.Close("test"); err != nil {
		t.Fatal(err)
	}
	if n := countEvents(t, path); n != 1 {
		t.Fatalf("events persisted = %d, want 1", n)
	}
}

// The flush cadence must run on the clock the caller passes to Tick, not on
// the wall clock: the supervisor drives Tick with its own time source.
func TestTickCadenceFollowsCallerClock(t *testing.T) {
	l, _ := openLedger(t, time.Hour)
	defer l.Close("test")

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	l.lastFlush = start

	l.Append(Entry{Resource: "crystals", Delta: 10, State: "reward"})
	if err := l.Tick(start.Add(2 * time.Hour)); err != nil {
		t.Fatal(err)
	}
	if l.Pending() != 0 {
		t.Fatalf("pending = %d after elapsed interval", l.Pending())
	}

	// The next flush is due an hour after the previous Tick's clock, so a
	// Tick 59 minutes later must not write.
	l.Append(Entry{Resource: "crystals", Delta: 5, State: "reward"})
	if err := l.Tick(start.Add(2*time.Hour + 59*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if l.Pending() != 1 {
		t.Fatalf("flushed early, pending = %d", l.Pending())
	}
	if err := l.Tick(start.Add(3*time.Hour + time.Minute)); err != nil {
		t.Fatal(err)
	}
	if l.Pending() != 0 {
		t.Fatalf("pending = %d, interval on the caller clock never elapsed", l.Pending())
	}
}

func TestCloseFlushesRemainder(t *testing.T) {
	l, path := openLedger(t, time.Hour)
	l.Append(Entry{Resource: "crystals", Delta: 10, State: "reward"})
	l.Append(Entry{Resource: "metal", Delta: -2, State: "grind"})

	if err := l.Close("stop requested"); err != nil {
		t.Fatal(err)
	}
	if n := countEvents(t, path); n != 2 {
		t.Fatalf("events persisted = %d, want 2", n)
	}
}

func TestCloseRecordsRunOutcome(t *testing.T) {
	l, path := openLedger(t, time.Hour)
	runID := l.RunID
	if err := l.Close("input channel lost"); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var ended, reason sql.NullString
	if err := db.QueryRow(
		`SELECT ended_at, stop_reason FROM runs WHERE run_id = ?`, runID,
	).Scan(&ended, &reason); err != nil {
		t.Fatal(err)
	}
	if !ended.Valid || ended.String == "" {
		t.Error("run end not recorded")
	}
	if reason.String != "input channel lost" {
		t.Errorf("stop reason = %q", reason.String)
	}
}

func TestTotals(t *testing.T) {
	l, _ := openLedger(t, time.Hour)
	defer l.Close("test")

	l.Append(Entry{Resource: "crystals", Delta: 10, State: "reward"})
	l.Append(Entry{Resource: "crystals", Delta: 10, State: "reward"})
	l.Append(Entry{Resource: "metal", Delta: -2, State: "grind"})

	totals := l.Totals()
	if totals["crystals"] != 20 {
		t.Errorf("crystals = %d, want 20", totals["crystals"])
	}
	if totals["metal"] != -2 {
		t.Errorf("metal = %d, want -2", totals["metal"])
	}
}

func TestSeparateRunsKeepSeparateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.db")
	first, err := New(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	firstID := first.RunID
	first.Close("test")

	second, err := New(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close("test")

	if second.RunID == firstID {
		t.Fatal("run IDs collide across runs")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("runs = %d, want 2", n)
	}
}
