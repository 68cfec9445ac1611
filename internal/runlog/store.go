package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users must delete the run log database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("run log schema version mismatch")

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Run is one recorded workflow execution.
type Run struct {
	ID            string
	PromptID      string
	SubmittedAt   time.Time
	FinishedAt    time.Time
	Outcome       Outcome
	OutputFormat  string
	ArtifactCount int
	FailureCount  int
	Error         string
}

// ArtifactOutcome is one artifact's result within a run, in enumeration order.
type ArtifactOutcome struct {
	Position  int
	Filename  string
	MimeType  string
	SizeLabel string
	Error     string
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the run log database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}

	dbPath := filepath.Join(dir, "runlog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		lock: flock.New(filepath.Join(dir, "runlog.lock")),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordRun inserts a finished run and its artifact outcomes. A file lock is
// held for the duration of the write so concurrent easel processes serialize
// cleanly around the shared database.
func (s *Store) RecordRun(ctx context.Context, run Run, artifacts []ArtifactOutcome) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Outcome == "" {
		return "", errors.New("run outcome required")
	}

	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire run log lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, prompt_id, submitted_at, finished_at, outcome,
            output_format, artifact_count, failure_count, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.PromptID,
		run.SubmittedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(run.Outcome),
		run.OutputFormat,
		run.ArtifactCount,
		run.FailureCount,
		nullableString(run.Error),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, artifact := range artifacts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_artifacts (run_id, position, filename, mime_type, size_label, error)
             VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID,
			artifact.Position,
			artifact.Filename,
			nullableString(artifact.MimeType),
			nullableString(artifact.SizeLabel),
			nullableString(artifact.Error),
		)
		if err != nil {
			return "", fmt.Errorf("insert artifact %d: %w", artifact.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt_id, submitted_at, finished_at, outcome,
                output_format, artifact_count, failure_count, error
         FROM runs ORDER BY submitted_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			submittedAt string
			finished    string
			outcome     string
			errText     sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.PromptID, &submittedAt, &finished, &outcome,
			&run.OutputFormat, &run.ArtifactCount, &run.FailureCount, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.Outcome = Outcome(outcome)
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Artifacts returns a run's artifact outcomes in enumeration order.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]ArtifactOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, filename, mime_type, size_label, error
         FROM run_artifacts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []ArtifactOutcome
	for rows.Next() {
		var (
			artifact  ArtifactOutcome
			mimeType  sql.NullString
			sizeLabel sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&artifact.Position, &artifact.Filename, &mimeType, &sizeLabel, &errText); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifact.MimeType = mimeType.String
		artifact.SizeLabel = sizeLabel.String
		artifact.Error = errText.String
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
