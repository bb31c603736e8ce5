// Package sqlite implements aegis.HistoryStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jblacketter/aegis"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const createTables = `
CREATE TABLE IF NOT EXISTS workflow_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	completed_at TEXT,
	success INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS step_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
	step_type TEXT NOT NULL,
	service TEXT NOT NULL,
	success INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	duration_ms REAL,
	error TEXT,
	attempts INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_step_runs_run_id ON step_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_name ON workflow_runs(workflow_name, started_at);
`

// nopLogger discards every record; used when no logger is configured.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMaxRecords sets the per-workflow retention ceiling. Zero (default)
// disables pruning.
func WithMaxRecords(n int) Option {
	return func(s *Store) { s.maxRecords = n }
}

// Store implements aegis.HistoryStore backed by a local SQLite file.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	maxRecords int
}

var _ aegis.HistoryStore = (*Store)(nil)

// New opens (and lazily initializes) a SQLite-backed HistoryStore at
// dbPath. A single connection serializes every write, matching the
// spec's "concurrent writers must serialize on the underlying
// connection/transaction" requirement, and eliminates SQLITE_BUSY errors
// from independently-opened concurrent connections.
func New(dbPath string, opts ...Option) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails on a malformed DSN or unregistered driver;
		// both are programmer errors against a constant driver name.
		panic(fmt.Sprintf("sqlite: open %s: %v", dbPath, err))
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: nopLogger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init enables foreign-key enforcement (required per-connection by
// SQLite) and creates the schema if it does not already exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createTables); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists execution as a single transaction: insert the run,
// insert its steps, then prune the oldest excess runs for that workflow
// if a retention ceiling is configured. Child step rows are removed by
// the schema's ON DELETE CASCADE.
func (s *Store) Record(ctx context.Context, execution aegis.ExecutionRecord) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var completedAt any
	if execution.CompletedAt != nil {
		completedAt = execution.CompletedAt.Format(time.RFC3339Nano)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO workflow_runs (workflow_name, started_at, completed_at, success) VALUES (?, ?, ?, ?)`,
		execution.WorkflowName, execution.StartedAt.Format(time.RFC3339Nano), completedAt, boolToInt(execution.Success),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	for _, step := range execution.Steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO step_runs (run_id, step_type, service, success, skipped, duration_ms, error, attempts)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, step.StepType, step.Service, boolToInt(step.Success), boolToInt(step.Skipped),
			step.DurationMS, nullString(step.Error), step.Attempts,
		); err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
	}

	if s.maxRecords > 0 {
		if err := pruneExcess(ctx, tx, execution.WorkflowName, s.maxRecords); err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("history record ok", "workflow", execution.WorkflowName, "duration", time.Since(start))
	return nil
}

func pruneExcess(ctx context.Context, tx *sql.Tx, workflowName string, maxRecords int) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workflow_runs WHERE workflow_name = ?`, workflowName,
	).Scan(&count); err != nil {
		return err
	}
	excess := count - maxRecords
	if excess <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM workflow_runs WHERE id IN (
			SELECT id FROM workflow_runs WHERE workflow_name = ? ORDER BY started_at ASC LIMIT ?
		)`, workflowName, excess,
	)
	return err
}

// GetHistory returns execution records for workflowName, most recent first.
func (s *Store) GetHistory(ctx context.Context, workflowName string) ([]aegis.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_name, started_at, completed_at, success FROM workflow_runs
		 WHERE workflow_name = ? ORDER BY started_at DESC`, workflowName)
	if err != nil {
		return nil, err
	}
	return s.rowsToRecords(ctx, rows)
}

// GetAll returns every execution record, grouped by workflow name, most
// recent first within each group.
func (s *Store) GetAll(ctx context.Context) (map[string][]aegis.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_name, started_at, completed_at, success FROM workflow_runs
		 ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	records, err := s.rowsToRecords(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]aegis.ExecutionRecord)
	for _, r := range records {
		out[r.WorkflowName] = append(out[r.WorkflowName], r)
	}
	return out, nil
}

// GetRecent returns the most recent execution records across all
// workflows, most recent first.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]aegis.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_name, started_at, completed_at, success FROM workflow_runs
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return s.rowsToRecords(ctx, rows)
}

// runRow is a workflow_runs row scanned before its *sql.Rows is closed.
// Steps are loaded afterward, by a separate query per run, so that no
// nested query ever runs while the outer Rows still holds the pool's
// single connection.
type runRow struct {
	id           int64
	workflowName string
	startedAt    string
	completedAt  sql.NullString
	success      int
}

// rowsToRecords fully drains and closes rows before loading any run's
// steps. With a single pooled connection (SetMaxOpenConns(1)), issuing
// loadSteps while the outer Rows is still open would starve forever
// waiting for a connection the outer Rows itself is holding.
func (s *Store) rowsToRecords(ctx context.Context, rows *sql.Rows) ([]aegis.ExecutionRecord, error) {
	var runRows []runRow
	for rows.Next() {
		var rr runRow
		if err := rows.Scan(&rr.id, &rr.workflowName, &rr.startedAt, &rr.completedAt, &rr.success); err != nil {
			rows.Close()
			return nil, err
		}
		runRows = append(runRows, rr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	records := make([]aegis.ExecutionRecord, 0, len(runRows))
	for _, rr := range runRows {
		started, err := time.Parse(time.RFC3339Nano, rr.startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		rec := aegis.ExecutionRecord{
			WorkflowName: rr.workflowName,
			StartedAt:    started,
			Success:      rr.success != 0,
		}
		if rr.completedAt.Valid {
			c, err := time.Parse(time.RFC3339Nano, rr.completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse completed_at: %w", err)
			}
			rec.CompletedAt = &c
		}
		steps, err := s.loadSteps(ctx, rr.id)
		if err != nil {
			return nil, err
		}
		rec.Steps = steps
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) loadSteps(ctx context.Context, runID int64) ([]aegis.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_type, service, success, skipped, duration_ms, error, attempts
		 FROM step_runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []aegis.StepRecord
	for rows.Next() {
		var (
			stepType, service string
			success, skipped  int
			durationMS        sql.NullFloat64
			stepErr           sql.NullString
			attempts          int
		)
		if err := rows.Scan(&stepType, &service, &success, &skipped, &durationMS, &stepErr, &attempts); err != nil {
			return nil, err
		}
		steps = append(steps, aegis.StepRecord{
			StepType:   stepType,
			Service:    service,
			Success:    success != 0,
			Skipped:    skipped != 0,
			DurationMS: durationMS.Float64,
			Error:      stepErr.String,
			Attempts:   attempts,
		})
	}
	return steps, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
