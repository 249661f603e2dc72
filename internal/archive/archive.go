// Package archive keeps a local sqlite mirror of activity logs that made it
// to the backend, so reports and exports work offline. It is read-side only:
// the sync path never consults it to decide what to send.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/pulsetrack/internal/queue"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// DaySummary is the aggregated tracked time for one calendar day.
type DaySummary struct {
	Date         string
	TotalSeconds int64
	Keystrokes   int64
	Clicks       int64
	EntryCount   int
}

// New opens (or creates) the sqlite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory archive for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}
	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS synced_logs (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		session_id       TEXT NOT NULL,
		keystroke_count  INTEGER NOT NULL DEFAULT 0,
		click_count      INTEGER NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		log_timestamp    TEXT NOT NULL,
		project_id       TEXT NOT NULL DEFAULT '',
		milestone_id     TEXT NOT NULL DEFAULT '',
		task_id          TEXT NOT NULL DEFAULT '',
		work_description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_synced_logs_ts ON synced_logs(log_timestamp);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// Record mirrors a synced batch. Re-recording the same logs is a no-op, so
// a retried detail insert cannot duplicate archive rows.
func (s *Store) Record(logs []queue.ActivityLog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	for _, l := range logs {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO synced_logs
			 (id, user_id, session_id, keystroke_count, click_count, duration_seconds, log_timestamp, project_id, milestone_id, task_id, work_description)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.UserID, l.SessionID, l.KeystrokeCount, l.ClickCount, l.DurationSeconds,
			l.Timestamp.UTC().Format(time.RFC3339), l.ProjectID, l.MilestoneID, l.TaskID, l.WorkDescription,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record log %s: %w", l.ID, err)
		}
	}
	return tx.Commit()
}

// List returns the newest archived logs, most recent first.
func (s *Store) List(limit int) ([]queue.ActivityLog, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, session_id, keystroke_count, click_count, duration_seconds, log_timestamp, project_id, milestone_id, task_id, work_description
		 FROM synced_logs ORDER BY log_timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list archived logs: %w", err)
	}
	defer rows.Close()

	var logs []queue.ActivityLog
	for rows.Next() {
		var l queue.ActivityLog
		var ts string
		if err := rows.Scan(&l.ID, &l.UserID, &l.SessionID, &l.KeystrokeCount, &l.ClickCount, &l.DurationSeconds, &ts, &l.ProjectID, &l.MilestoneID, &l.TaskID, &l.WorkDescription); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339, ts)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DailySummary aggregates tracked time per calendar day in [from, to).
func (s *Store) DailySummary(from, to time.Time) ([]DaySummary, error) {
	rows, err := s.db.Query(`
		SELECT date(log_timestamp) AS day,
		       COALESCE(SUM(duration_seconds), 0),
		       COALESCE(SUM(keystroke_count), 0),
		       COALESCE(SUM(click_count), 0),
		       COUNT(*)
		FROM synced_logs
		WHERE log_timestamp >= ? AND log_timestamp < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	defer rows.Close()

	var summaries []DaySummary
	for rows.Next() {
		var ds DaySummary
		if err := rows.Scan(&ds.Date, &ds.TotalSeconds, &ds.Keystrokes, &ds.Clicks, &ds.EntryCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

// TodayTotal returns the tracked seconds archived for the current UTC day.
func (s *Store) TodayTotal() (int64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(duration_seconds), 0) FROM synced_logs WHERE date(log_timestamp) = ?`, today,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
