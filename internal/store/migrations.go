package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS launches (
		id            TEXT PRIMARY KEY,
		run_name      TEXT NOT NULL,
		experiment    TEXT NOT NULL,
		replicate     TEXT NOT NULL,
		result_folder TEXT NOT NULL,
		state         TEXT NOT NULL DEFAULT 'RUNNING',
		error         TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS launch_jobs (
		id         TEXT PRIMARY KEY,
		launch_id  TEXT NOT NULL REFERENCES launches(id) ON DELETE CASCADE,
		stage      TEXT NOT NULL,
		app        TEXT NOT NULL,
		task_id    TEXT NOT NULL DEFAULT '',
		state      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_launches_folder_state ON launches(result_folder, state)`,
	`CREATE INDEX IF NOT EXISTS idx_launches_created_at ON launches(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_launch_jobs_launch_id ON launch_jobs(launch_id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
