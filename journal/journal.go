// Package journal keeps a SQLite log of resolved gestures.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/edgenav/gesture"

	_ "modernc.org/sqlite" // SQLite driver.
)

const DefaultHistoryLimit = 50

// Entry is one journaled resolution.
type Entry struct {
	ID         int64           `json:"id"`
	RunID      string          `json:"runId"`
	DeviceID   string          `json:"deviceId"`
	SessionID  string          `json:"sessionId"`
	Outcome    gesture.Outcome `json:"outcome"`
	Edge       string          `json:"edge"`
	DownTimeMs int64           `json:"downTime"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}

// Query filters Recent. Zero values match everything.
type Query struct {
	DeviceID string
	Outcome  gesture.Outcome
	Limit    int
}

// Store wraps SQLite access. Each Store tags its rows with a fresh run id,
// so one watch or server lifetime can be told apart from the next.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db, runID: uuid.NewString()}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return store, nil
}

// RunID identifies the rows written through this Store.
func (s *Store) RunID() string {
	return s.runID
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS resolutions (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			edge TEXT NOT NULL,
			down_time_ms INTEGER NOT NULL,
			resolved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_device ON resolutions(device_id, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record appends a resolution for the given device.
func (s *Store) Record(ctx context.Context, deviceID string, r gesture.Resolution) error {
	resolvedAt := r.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (run_id, device_id, session_id, outcome, edge, down_time_ms, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID,
		deviceID,
		r.SessionID,
		string(r.Outcome),
		r.EdgeName,
		r.DownTimeMs,
		resolvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	clauses := []string{"1=1"}
	args := []any{}
	if q.DeviceID != "" {
		clauses = append(clauses, "device_id = ?")
		args = append(args, q.DeviceID)
	}
	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(q.Outcome))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT id, run_id, device_id, session_id, outcome, edge, down_time_ms, resolved_at
		FROM resolutions
		WHERE %s
		ORDER BY id DESC
		LIMIT ?`, strings.Join(clauses, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var outcome, resolvedAt string
		if err := rows.Scan(&e.ID, &e.RunID, &e.DeviceID, &e.SessionID, &outcome, &e.Edge, &e.DownTimeMs, &resolvedAt); err != nil {
			return nil, err
		}
		e.Outcome = gesture.Outcome(outcome)
		parsed, err := time.Parse(time.RFC3339Nano, resolvedAt)
		if err != nil {
			return nil, err
		}
		e.ResolvedAt = parsed
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Counts tallies outcomes, optionally for one device.
func (s *Store) Counts(ctx context.Context, deviceID string) (map[gesture.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM resolutions
		 WHERE (? = '' OR device_id = ?)
		 GROUP BY outcome`, deviceID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[gesture.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[gesture.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
