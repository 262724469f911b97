// Package history persists run and iteration records to SQLite so past
// loop runs can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/grindloop/grind/internal/loop"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    backlog_path TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    exit_status TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS iterations (
    run_id TEXT NOT NULL,
    iteration INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    tool_calls INTEGER NOT NULL,
    tool_errors INTEGER NOT NULL,
    commit_hash TEXT NOT NULL DEFAULT '',
    commit_message TEXT NOT NULL DEFAULT '',
    cost_usd REAL NOT NULL DEFAULT 0,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, iteration),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one recorded loop run.
type Run struct {
	ID          string
	BacklogPath string
	StartedAt   time.Time
	FinishedAt  *time.Time
	ExitStatus  string
	Iterations  int
}

// IterationRow is one recorded iteration within a run.
type IterationRow struct {
	Iteration     int
	Duration      time.Duration
	ToolCalls     int
	ToolErrors    int
	CommitHash    string
	CommitMessage string
	CostUSD       float64
	InputTokens   int64
	OutputTokens  int64
	Error         string
}

// StartRun records the beginning of a run and returns its ID.
func (s *Store) StartRun(ctx context.Context, backlogPath string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, backlog_path, started_at) VALUES (?, ?, ?)`,
		id, backlogPath, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// FinishRun records a run's terminal status.
func (s *Store) FinishRun(ctx context.Context, runID string, status loop.ExitStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, exit_status = ? WHERE id = ?`,
		time.Now().UTC(), status.String(), runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// Recorder returns a loop.Recorder bound to one run.
func (s *Store) Recorder(runID string) loop.Recorder {
	return &runRecorder{store: s, runID: runID}
}

type runRecorder struct {
	store *Store
	runID string
}

func (r *runRecorder) RecordIteration(ctx context.Context, result *loop.IterationResult) error {
	var inTokens, outTokens int64
	if result.Usage != nil {
		inTokens = result.Usage.InputTokens
		outTokens = result.Usage.OutputTokens
	}
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO iterations (
			run_id, iteration, duration_ms, tool_calls, tool_errors,
			commit_hash, commit_message, cost_usd, input_tokens, output_tokens, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID,
		result.Iteration,
		result.Duration.Milliseconds(),
		result.Stats.ToolCalls,
		result.Stats.ToolErrors,
		result.CommitHash,
		result.CommitMessage,
		result.CostUSD,
		inTokens,
		outTokens,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("recording iteration %d: %w", result.Iteration, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.backlog_path, r.started_at, r.finished_at, r.exit_status,
		       (SELECT COUNT(*) FROM iterations i WHERE i.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.BacklogPath, &run.StartedAt, &finished, &run.ExitStatus, &run.Iterations); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunIterations returns all iterations of a run in order.
func (s *Store) RunIterations(ctx context.Context, runID string) ([]*IterationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, duration_ms, tool_calls, tool_errors,
		       commit_hash, commit_message, cost_usd, input_tokens, output_tokens, error
		FROM iterations
		WHERE run_id = ?
		ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying iterations: %w", err)
	}
	defer rows.Close()

	var iters []*IterationRow
	for rows.Next() {
		row := &IterationRow{}
		var durationMs int64
		if err := rows.Scan(&row.Iteration, &durationMs, &row.ToolCalls, &row.ToolErrors,
			&row.CommitHash, &row.CommitMessage, &row.CostUSD,
			&row.InputTokens, &row.OutputTokens, &row.Error); err != nil {
			return nil, fmt.Errorf("scanning iteration: %w", err)
		}
		row.Duration = time.Duration(durationMs) * time.Millisecond
		iters = append(iters, row)
	}
	return iters, rows.Err()
}
