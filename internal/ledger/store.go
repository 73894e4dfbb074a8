// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a history of extraction runs in SQLite so repeated
// runs over the same catalog can be listed and compared job by job.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

const (
	// DirName is the ledger directory created under the output directory
	// when no explicit ledger directory is configured.
	DirName = ".ledger"
	dbFile  = "runs.db"

	writeAttempts = 5
	writeDelay    = 50 * time.Millisecond
)

// ErrNotFound is returned when a run id is not in the ledger.
var ErrNotFound = errors.New("run not found")

// Run is one recorded extraction run.
type Run struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Document     string    `json:"document" yaml:"document"`
	CatalogTitle string    `json:"catalog_title" yaml:"catalog_title"`
	MaxWorkers   int       `json:"max_workers" yaml:"max_workers"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	Succeeded    int       `json:"succeeded" yaml:"succeeded"`
	Failed       int       `json:"failed" yaml:"failed"`
	TotalChars   int       `json:"total_chars" yaml:"total_chars"`
}

// Elapsed returns the run's wall-clock duration.
func (r Run) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages the ledger database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at dir/runs.db and creates the schema if
// it does not exist.
func Open(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("ledger directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	path := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			catalog_title TEXT,
			max_workers INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			total_chars INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			job_id TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			kind TEXT,
			chars INTEGER NOT NULL,
			pages INTEGER NOT NULL,
			file TEXT,
			error TEXT,
			PRIMARY KEY (run_id, job_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its job results in one transaction. Results keep the
// order they are given in. A zero run.ID is replaced with a new UUID; the
// stored run is returned.
func (s *Store) Record(ctx context.Context, run Run, results []types.JobResult) (Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	err := retry.Do(
		func() error { return s.record(ctx, run, results) },
		retry.Context(ctx),
		retry.Attempts(writeAttempts),
		retry.Delay(writeDelay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return run, nil
}

func (s *Store) record(ctx context.Context, run Run, results []types.JobResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, document, catalog_title, max_workers, started_at, finished_at, succeeded, failed, total_chars)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Document, run.CatalogTitle, run.MaxWorkers,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Succeeded, run.Failed, run.TotalChars,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO job_results (run_id, ordinal, job_id, description, status, kind, chars, pages, file, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		_, err := stmt.ExecContext(ctx,
			run.ID.String(), i, r.ID, r.Description, string(r.Status), string(r.Kind),
			r.Chars, r.Pages, r.File, r.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting result %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, catalog_title, max_workers, started_at, finished_at, succeeded, failed, total_chars
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document, catalog_title, max_workers, started_at, finished_at, succeeded, failed, total_chars
		 FROM runs WHERE id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Results returns the job results recorded for a run, in the order they
// were recorded.
func (s *Store) Results(ctx context.Context, runID uuid.UUID) ([]types.JobResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, description, status, kind, chars, pages, file, error
		 FROM job_results WHERE run_id = ? ORDER BY ordinal`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.JobResult
	for rows.Next() {
		var (
			r                       types.JobResult
			status, kind            string
			desc, file, errorString sql.NullString
		)
		if err := rows.Scan(&r.ID, &desc, &status, &kind, &r.Chars, &r.Pages, &file, &errorString); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Description = desc.String
		r.Status = types.JobStatus(status)
		r.Kind = types.FailureKind(kind)
		r.File = file.String
		r.Error = errorString.String
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		id                string
		title             sql.NullString
		started, finished string
	)
	err := sc.Scan(&id, &r.Document, &title, &r.MaxWorkers, &started, &finished,
		&r.Succeeded, &r.Failed, &r.TotalChars)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("parsing run id %q: %w", id, err)
	}
	r.CatalogTitle = title.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// isBusy reports whether err is a transient lock conflict with another
// writer.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
