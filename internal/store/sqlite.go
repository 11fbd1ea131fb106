package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Launches ---

const launchColumns = `id, run_name, experiment, replicate, result_folder, state, error, created_at, finished_at`

func (s *SQLiteStore) CreateLaunch(ctx context.Context, l *Launch) error {
	s.logger.Debug("sql", "op", "insert", "table", "launches", "id", l.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO launches (`+launchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.RunName, l.Experiment, l.Replicate, l.ResultFolder, string(l.State), l.Error,
		l.CreatedAt.Format(time.RFC3339Nano), formatTime(l.FinishedAt),
	)
	return err
}

func (s *SQLiteStore) GetLaunch(ctx context.Context, id string) (*Launch, error) {
	s.logger.Debug("sql", "op", "select", "table", "launches", "id", id)

	l, err := scanLaunch(s.db.QueryRowContext(ctx,
		`SELECT `+launchColumns+` FROM launches WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if l.Jobs, err = s.ListJobs(ctx, id); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) ListLaunches(ctx context.Context, opts ListOptions) ([]*Launch, error) {
	s.logger.Debug("sql", "op", "list", "table", "launches", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+launchColumns+` FROM launches ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, err
	}

	var launches []*Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		launches = append(launches, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Jobs are loaded after the cursor is closed; the in-memory database
	// has a single connection.
	for _, l := range launches {
		if l.Jobs, err = s.ListJobs(ctx, l.ID); err != nil {
			return nil, fmt.Errorf("load jobs: %w", err)
		}
	}
	return launches, nil
}

func (s *SQLiteStore) UpdateLaunch(ctx context.Context, l *Launch) error {
	s.logger.Debug("sql", "op", "update", "table", "launches", "id", l.ID, "state", l.State)

	result, err := s.db.ExecContext(ctx,
		`UPDATE launches SET state=?, error=?, finished_at=? WHERE id=?`,
		string(l.State), l.Error, formatTime(l.FinishedAt), l.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("launch %s not found", l.ID)
	}
	return nil
}

func (s *SQLiteStore) ActiveLaunch(ctx context.Context, folder string) (*Launch, error) {
	s.logger.Debug("sql", "op", "select_active", "table", "launches", "folder", folder)

	l, err := scanLaunch(s.db.QueryRowContext(ctx,
		`SELECT `+launchColumns+` FROM launches WHERE result_folder = ? AND state = ?
		 ORDER BY created_at DESC LIMIT 1`,
		folder, string(LaunchStateRunning),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

// --- Jobs ---

func (s *SQLiteStore) AddJob(ctx context.Context, job *LaunchJob) error {
	s.logger.Debug("sql", "op", "insert", "table", "launch_jobs", "id", job.ID, "stage", job.Stage)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO launch_jobs (id, launch_id, stage, app, task_id, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.LaunchID, job.Stage, job.App, job.TaskID, job.State,
		job.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *LaunchJob) error {
	s.logger.Debug("sql", "op", "update", "table", "launch_jobs", "id", job.ID, "state", job.State)

	result, err := s.db.ExecContext(ctx,
		`UPDATE launch_jobs SET task_id=?, state=? WHERE id=?`,
		job.TaskID, job.State, job.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, launchID string) ([]LaunchJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, launch_id, stage, app, task_id, state, created_at
		 FROM launch_jobs WHERE launch_id = ? ORDER BY created_at, rowid`, launchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []LaunchJob
	for rows.Next() {
		var j LaunchJob
		var createdAt string
		if err := rows.Scan(&j.ID, &j.LaunchID, &j.Stage, &j.App, &j.TaskID, &j.State, &createdAt); err != nil {
			return nil, err
		}
		j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaunch(row scanner) (*Launch, error) {
	var l Launch
	var state, createdAt string
	var finishedAt *string
	if err := row.Scan(&l.ID, &l.RunName, &l.Experiment, &l.Replicate, &l.ResultFolder,
		&state, &l.Error, &createdAt, &finishedAt); err != nil {
		return nil, err
	}
	l.State = LaunchState(state)
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if finishedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *finishedAt)
		l.FinishedAt = &t
	}
	return &l, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}
