// Package results keeps the leaderboard of solved runs in SQLite.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/chipslide/game/service"
)

// Fixed-width so solved_ts sorts chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit applies when Top is asked for a non-positive number of rows
const DefaultLimit = 10

// SQLiteStore implements service.ResultStore
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at path, creating parent directories as
// needed. ":memory:" opens a private in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialized and keeps :memory: a single database
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// EnsureSchema creates the tables if they do not exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solved_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			pack_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			level_name TEXT NOT NULL DEFAULT '',
			moves INTEGER NOT NULL,
			optimal INTEGER NOT NULL DEFAULT 0,
			solved_ts TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS solved_runs_level ON solved_runs(pack_id, level, moves);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Record stores one solved run
func (s *SQLiteStore) Record(ctx context.Context, result service.Result) error {
	packID := strings.TrimSpace(result.PackID)
	if packID == "" {
		return fmt.Errorf("record result: pack id is required")
	}
	solved := result.SolvedAt
	if solved.IsZero() {
		solved = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solved_runs(session_id, pack_id, level, level_name, moves, optimal, solved_ts) VALUES(?,?,?,?,?,?,?)`,
		result.SessionID,
		packID,
		result.Level,
		result.LevelName,
		result.Moves,
		result.Optimal,
		solved.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Top returns the best runs for one level: fewest moves first, earliest
// solve breaking ties
func (s *SQLiteStore) Top(ctx context.Context, packID string, level, limit int) ([]service.Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, pack_id, level, level_name, moves, optimal, solved_ts
		FROM solved_runs
		WHERE pack_id = ? AND level = ?
		ORDER BY moves ASC, solved_ts ASC, id ASC
		LIMIT ?`, packID, level, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	results := []service.Result{}
	for rows.Next() {
		var r service.Result
		var ts string
		if err := rows.Scan(&r.SessionID, &r.PackID, &r.Level, &r.LevelName, &r.Moves, &r.Optimal, &ts); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		r.SolvedAt, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse solved_ts %q: %w", ts, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns how many runs are stored for a pack
func (s *SQLiteStore) Count(ctx context.Context, packID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solved_runs WHERE pack_id = ?`, packID).Scan(&n)
	return n, err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
