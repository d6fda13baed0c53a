package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
)

// Entry is one persisted resolve attempt.
type Entry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	SessionID  string    `json:"session_id,omitempty"`
	SystemID   string    `json:"system_id"`
	Dialect    string    `json:"dialect,omitempty"`
	Query      string    `json:"query"`
	Intent     string    `json:"intent,omitempty"`
	SQL        string    `json:"sql,omitempty"`
	Success    bool      `json:"success"`
	ErrorCode  string    `json:"error_code,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListOptions filters a history read.
type ListOptions struct {
	SessionID string
	Limit     int
}

// Store reads and writes the query_history table over a write/read pool pair.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewStore creates a Store over an opened pool pair.
func NewStore(writeDB, readDB *sql.DB) *Store {
	return &Store{writeDB: writeDB, readDB: readDB}
}

// Record inserts one resolve attempt. Implements resolver.Recorder.
func (s *Store) Record(ctx context.Context, rec resolver.QueryRecord) error {
	const q = `INSERT INTO query_history
		(task_id, session_id, system_id, dialect, query, intent, sql_text, success, error_code, row_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.writeDB.ExecContext(ctx, q,
		rec.TaskID, rec.SessionID, rec.SystemID, rec.Dialect, rec.Query,
		rec.Intent, rec.SQL, boolToInt(rec.Success), rec.ErrorCode,
		rec.RowCount, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	q := `SELECT id, task_id, session_id, system_id, dialect, query, intent,
		sql_text, success, error_code, row_count, duration_ms, created_at
		FROM query_history`
	args := []interface{}{}
	if opts.SessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, opts.SessionID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Entry
	for rows.Next() {
		var e Entry
		var success int
		var created string
		if err := rows.Scan(&e.ID, &e.TaskID, &e.SessionID, &e.SystemID, &e.Dialect,
			&e.Query, &e.Intent, &e.SQL, &success, &e.ErrorCode,
			&e.RowCount, &e.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan query history: %w", err)
		}
		e.Success = success != 0
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ resolver.Recorder = (*Store)(nil)
