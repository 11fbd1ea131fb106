// Package store keeps the local history of pipeline launches: which run was
// launched into which results folder, and the remote task of every stage.
// It is consulted before launching so a replicate that is still running is
// not launched twice.
package store

import (
	"context"
	"time"
)

// LaunchState is the lifecycle state of a launch.
type LaunchState string

const (
	LaunchStateRunning   LaunchState = "RUNNING"
	LaunchStateCompleted LaunchState = "COMPLETED"
	LaunchStateFailed    LaunchState = "FAILED"
)

// IsTerminal returns true if the launch is in a final state.
func (s LaunchState) IsTerminal() bool {
	return s == LaunchStateCompleted || s == LaunchStateFailed
}

// Launch is one invocation of the pipeline that submitted jobs.
type Launch struct {
	ID           string
	RunName      string
	Experiment   string
	Replicate    string
	ResultFolder string
	State        LaunchState
	Error        string
	CreatedAt    time.Time
	FinishedAt   *time.Time
	Jobs         []LaunchJob
}

// LaunchJob is one stage submitted as part of a launch.
type LaunchJob struct {
	ID        string
	LaunchID  string
	Stage     string
	App       string
	TaskID    string
	State     string
	CreatedAt time.Time
}

// ListOptions pages through launches, newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

// Clamp bounds Limit to [1, 500] with a default of 20.
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Store persists launches and their jobs.
type Store interface {
	CreateLaunch(ctx context.Context, l *Launch) error
	GetLaunch(ctx context.Context, id string) (*Launch, error)
	ListLaunches(ctx context.Context, opts ListOptions) ([]*Launch, error)
	UpdateLaunch(ctx context.Context, l *Launch) error

	// ActiveLaunch returns the running launch writing to folder, or nil.
	ActiveLaunch(ctx context.Context, folder string) (*Launch, error)

	AddJob(ctx context.Context, job *LaunchJob) error
	UpdateJob(ctx context.Context, job *LaunchJob) error
	ListJobs(ctx context.Context, launchID string) ([]LaunchJob, error)

	Close() error
	Migrate(ctx context.Context) error
}
