// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local SQLite log of submission attempts so a user
// can see what was converted, with which options, and why an attempt failed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ojamed/pkg/types"
)

const defaultLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Attempt is one recorded submission.
type Attempt struct {
	ID       string `json:"id" yaml:"id"`
	FileName string `json:"file_name" yaml:"file_name"`
	FileSize int64  `json:"file_size" yaml:"file_size"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Config is the submitted configuration as JSON.
	Config string `json:"config" yaml:"config"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Outcome is the terminal phase: succeeded or failed.
	Outcome types.Phase `json:"outcome" yaml:"outcome"`

	Category     types.ErrorCategory `json:"category,omitempty" yaml:"category,omitempty"`
	Message      string              `json:"message,omitempty" yaml:"message,omitempty"`
	DownloadPath string              `json:"download_path,omitempty" yaml:"download_path,omitempty"`
	Warning      string              `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// Duration returns how long the attempt took.
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// Store manages the attempt log database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_size INTEGER,
			endpoint TEXT,
			config TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			outcome TEXT NOT NULL,
			category TEXT,
			message TEXT,
			download_path TEXT,
			warning TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts or replaces an attempt.
func (s *Store) Record(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attempts
			(id, file_name, file_size, endpoint, config, started_at, finished_at,
			 outcome, category, message, download_path, warning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.FileName, a.FileSize, a.Endpoint, a.Config,
		a.StartedAt.UTC().Format(timeLayout), a.FinishedAt.UTC().Format(timeLayout),
		string(a.Outcome), string(a.Category), a.Message, a.DownloadPath, a.Warning,
	)
	if err != nil {
		return fmt.Errorf("recording attempt %s: %w", a.ID, err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first. A limit of 0 uses the
// default (20).
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, file_size, endpoint, config, started_at, finished_at,
		        outcome, category, message, download_path, warning
		 FROM attempts ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                 Attempt
			started, finished string
			outcome, category string
		)
		if err := rows.Scan(&a.ID, &a.FileName, &a.FileSize, &a.Endpoint, &a.Config,
			&started, &finished, &outcome, &category, &a.Message, &a.DownloadPath, &a.Warning); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		if a.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("scanning attempt %s: started_at: %w", a.ID, err)
		}
		if a.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("scanning attempt %s: finished_at: %w", a.ID, err)
		}
		a.Outcome = types.Phase(outcome)
		a.Category = types.ErrorCategory(category)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats summarizes the log by outcome.
type Stats struct {
	Succeeded int
	Failed    int
}

// Total returns the number of recorded attempts.
func (s Stats) Total() int {
	return s.Succeeded + s.Failed
}

// Stats counts attempts by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return st, fmt.Errorf("counting attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return st, fmt.Errorf("scanning counts: %w", err)
		}
		switch types.Phase(outcome) {
		case types.PhaseSucceeded:
			st.Succeeded = n
		case types.PhaseFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}
