/*
Package sqlite provides durable storage for attendance state.

PURPOSE:
  The in-memory attendance.Store is the authority while the process runs.
  This package keeps a copy on disk so a restart does not lose the day:
  snapshots are upserted after scans and on the export schedule, and every
  applied scan is appended to a log.

KEY TABLES:
  workers:       one row per badge id, seq preserves first-seen order
  daily_records: one row per (worker, date), replaced on every save
  scan_events:   append-only log of applied scans (never updated)

APPEND-ONLY ENFORCEMENT:
  scan_events has no UPDATE or DELETE path other than Reset() and
  ReplaceSnapshot().
  daily_records may be overwritten, but only from a Snapshot, which can
  only move a record forward (unset -> in -> out).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, as the scheduler and the ingestion
  actor both write.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block the
  single writer.

USAGE:
  store, err := sqlite.New("./attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  snap, err := store.LoadSnapshot(ctx)
  engine := attendance.NewStoreFromSnapshot(attendance.DefaultShift, snap)

SEE ALSO:
  - attendance/snapshot.go: the unit persisted here
  - export/exporter.go: Exporter interface this Store also satisfies
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

// Store implements snapshot persistence and the scan log using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_seq
		ON workers(seq);

	CREATE TABLE IF NOT EXISTS daily_records (
		worker_id TEXT NOT NULL REFERENCES workers(id),
		date TEXT NOT NULL,
		time_in TEXT,
		time_out TEXT,
		overtime TEXT NOT NULL,
		worktime TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (worker_id, date)
	);

	-- Board queries ("who is in today")
	CREATE INDEX IF NOT EXISTS idx_daily_records_date
		ON daily_records(date);

	-- Scan log (append-only)
	CREATE TABLE IF NOT EXISTS scan_events (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		name TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_events_worker
		ON scan_events(worker_id, scanned_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Name identifies the store when used as an exporter.
func (s *Store) Name() string { return "sqlite" }

// Export saves the snapshot; it lets the store sit next to the file exporters.
func (s *Store) Export(ctx context.Context, snap attendance.Snapshot) error {
	return s.SaveSnapshot(ctx, snap)
}

// SaveSnapshot upserts every worker and daily record in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap attendance.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := upsertSnapshot(ctx, sqlTx, snap); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// ReplaceSnapshot clears every table, scan log included, and saves snap in
// the same transaction. On error the previous contents are untouched.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap attendance.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := clearTables(ctx, sqlTx); err != nil {
		return err
	}
	if err := upsertSnapshot(ctx, sqlTx, snap); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func upsertSnapshot(ctx context.Context, sqlTx *sql.Tx, snap attendance.Snapshot) error {
	now := time.Now().UTC().Format(time.RFC3339)

	for i, w := range snap.Workers {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO workers (id, name, seq, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
		`, string(w.ID), w.Name, i, now)
		if err != nil {
			return fmt.Errorf("failed to save worker %s: %w", w.ID, err)
		}

		for _, d := range w.Days {
			_, err := sqlTx.ExecContext(ctx, `
				INSERT INTO daily_records (worker_id, date, time_in, time_out, overtime, worktime, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(worker_id, date) DO UPDATE SET
					time_in = excluded.time_in,
					time_out = excluded.time_out,
					overtime = excluded.overtime,
					worktime = excluded.worktime,
					updated_at = excluded.updated_at
			`,
				string(w.ID),
				d.Date.String(),
				nullClock(d.Record.TimeIn),
				nullClock(d.Record.TimeOut),
				d.Record.Overtime.String(),
				d.Record.Worktime.String(),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to save record %s/%s: %w", w.ID, d.Date, err)
			}
		}
	}
	return nil
}

// LoadSnapshot reads everything back in first-seen order.
func (s *Store) LoadSnapshot(ctx context.Context) (attendance.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, r.date, r.time_in, r.time_out, r.overtime, r.worktime
		FROM workers w
		LEFT JOIN daily_records r ON r.worker_id = w.id
		ORDER BY w.seq ASC, w.id ASC, r.date ASC
	`)
	if err != nil {
		return attendance.Snapshot{}, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var snap attendance.Snapshot
	for rows.Next() {
		var (
			id, name           string
			date               sql.NullString
			timeIn, timeOut    sql.NullString
			overtime, worktime sql.NullString
		)
		if err := rows.Scan(&id, &name, &date, &timeIn, &timeOut, &overtime, &worktime); err != nil {
			return attendance.Snapshot{}, fmt.Errorf("failed to scan record: %w", err)
		}

		n := len(snap.Workers)
		if n == 0 || snap.Workers[n-1].ID != attendance.WorkerID(id) {
			snap.Workers = append(snap.Workers, attendance.WorkerSnapshot{ID: attendance.WorkerID(id), Name: name})
			n++
		}
		if !date.Valid {
			continue
		}

		day, err := scanDay(date.String, timeIn, timeOut, overtime.String, worktime.String)
		if err != nil {
			return attendance.Snapshot{}, fmt.Errorf("worker %s: %w", id, err)
		}
		snap.Workers[n-1].Days = append(snap.Workers[n-1].Days, day)
	}

	return snap, rows.Err()
}

func scanDay(date string, timeIn, timeOut sql.NullString, overtime, worktime string) (attendance.DayRecord, error) {
	d, err := attendance.ParseDate(date)
	if err != nil {
		return attendance.DayRecord{}, err
	}
	in, err := parseNullClock(timeIn)
	if err != nil {
		return attendance.DayRecord{}, err
	}
	out, err := parseNullClock(timeOut)
	if err != nil {
		return attendance.DayRecord{}, err
	}
	ot, err := decimal.NewFromString(overtime)
	if err != nil {
		return attendance.DayRecord{}, fmt.Errorf("invalid overtime %q: %w", overtime, err)
	}
	wt, err := decimal.NewFromString(worktime)
	if err != nil {
		return attendance.DayRecord{}, fmt.Errorf("invalid worktime %q: %w", worktime, err)
	}
	rec := attendance.DailyRecord{TimeIn: in, TimeOut: out, Overtime: ot, Worktime: wt}
	if err := rec.Validate(); err != nil {
		return attendance.DayRecord{}, fmt.Errorf("%s: %w", date, err)
	}
	return attendance.DayRecord{Date: d, Record: rec}, nil
}

// =============================================================================
// SCAN LOG (append-only)
// =============================================================================

// ScanEvent is one applied scan as recorded in the log.
type ScanEvent struct {
	ID        string
	WorkerID  attendance.WorkerID
	Name      string
	ScannedAt time.Time
	Outcome   attendance.Outcome
	CreatedAt time.Time
}

// AppendScan records an applied scan and returns its generated id.
func (s *Store) AppendScan(ctx context.Context, at time.Time, res attendance.ScanResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_events (id, worker_id, name, scanned_at, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id,
		string(res.WorkerID),
		res.Name,
		at.Format(time.RFC3339),
		string(res.Outcome),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to append scan: %w", err)
	}
	return id, nil
}

// ListScans returns the most recent scans for a worker, newest first.
// An empty workerID lists every worker.
func (s *Store) ListScans(ctx context.Context, workerID attendance.WorkerID, limit int) ([]ScanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, worker_id, name, scanned_at, outcome, created_at
		FROM scan_events
		WHERE (? = '' OR worker_id = ?)
		ORDER BY scanned_at DESC, created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, string(workerID), string(workerID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var events []ScanEvent
	for rows.Next() {
		var (
			e                    ScanEvent
			scannedAt, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.WorkerID, &e.Name, &scannedAt, &e.Outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if e.ScannedAt, err = time.Parse(time.RFC3339, scannedAt); err != nil {
			return nil, fmt.Errorf("invalid scanned_at on event %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at on event %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset deletes all data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := clearTables(ctx, sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullClock(c *attendance.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseNullClock(ns sql.NullString) (*attendance.ClockTime, error) {
	if !ns.Valid {
		return nil, nil
	}
	c, err := attendance.ParseClock(ns.String)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func clearTables(ctx context.Context, sqlTx *sql.Tx) error {
	for _, table := range []string{"scan_events", "daily_records", "workers"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
