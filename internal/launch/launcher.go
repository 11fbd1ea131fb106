package launch

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/internal/store"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

// Launcher submits workflows to the platform one job at a time and records
// them in the launch history.
type Launcher struct {
	Platform     Platform
	Store        store.Store
	Logger       *slog.Logger
	PollInterval time.Duration
}

// NewLauncher creates a Launcher. st may be nil, in which case launches are
// not recorded.
func NewLauncher(platform Platform, st store.Store, logger *slog.Logger) *Launcher {
	return &Launcher{
		Platform:     platform,
		Store:        st,
		Logger:       logger.With("component", "launcher"),
		PollInterval: 10 * time.Second,
	}
}

// Launch runs wf to completion. Jobs run in order; each waits for the one
// before it, and its step-output inputs are resolved from the results the
// earlier jobs left in the results folder.
func (l *Launcher) Launch(ctx context.Context, run *Run, wf *Workflow) (*store.Launch, error) {
	if err := l.checkIdle(ctx, wf.Folder); err != nil {
		return nil, err
	}
	if _, err := l.Platform.WorkspaceCreateFolder(ctx, strings.TrimSuffix(wf.Folder, "/")); err != nil {
		return nil, fmt.Errorf("create results folder: %w", err)
	}

	rec := &store.Launch{
		ID:           "launch_" + uuid.New().String(),
		RunName:      wf.Name,
		Experiment:   run.Experiment,
		Replicate:    run.RepTech(),
		ResultFolder: wf.Folder,
		State:        store.LaunchStateRunning,
		CreatedAt:    time.Now().UTC(),
	}
	if l.Store != nil {
		if err := l.Store.CreateLaunch(ctx, rec); err != nil {
			return nil, fmt.Errorf("record launch: %w", err)
		}
	}
	log := l.Logger.With("launch_id", rec.ID, "run", wf.Name)
	log.Info("launch started", "jobs", len(wf.Jobs), "folder", wf.Folder)

	outputs := make(map[string]bvbrc.WorkspaceObject)
	for token, prior := range run.Priors {
		outputs[token] = prior
	}

	var runErr error
	for _, job := range wf.Jobs {
		if err := l.runJob(ctx, run, job, rec, outputs, log); err != nil {
			runErr = err
			break
		}
	}

	finished := time.Now().UTC()
	rec.FinishedAt = &finished
	rec.State = store.LaunchStateCompleted
	if runErr != nil {
		rec.State = store.LaunchStateFailed
		rec.Error = runErr.Error()
	}
	if l.Store != nil {
		// The launch outcome is recorded even when ctx was cancelled.
		if err := l.Store.UpdateLaunch(context.WithoutCancel(ctx), rec); err != nil {
			log.Error("record launch outcome", "error", err)
		}
	}
	if runErr != nil {
		log.Error("launch failed", "error", runErr)
		return rec, runErr
	}
	log.Info("launch completed", "duration", finished.Sub(rec.CreatedAt))
	return rec, nil
}

func (l *Launcher) runJob(ctx context.Context, run *Run, job Job, rec *store.Launch, outputs map[string]bvbrc.WorkspaceObject, log *slog.Logger) error {
	params, err := job.params(outputs)
	if err != nil {
		return fmt.Errorf("stage %s: %w", job.Stage, err)
	}
	params["output_path"] = strings.TrimSuffix(job.OutputPath, "/")

	task, err := l.Platform.StartApp(ctx, bvbrc.StartAppInput{
		AppID:      job.App,
		Params:     params,
		OutputPath: strings.TrimSuffix(job.OutputPath, "/"),
	})
	if err != nil {
		return fmt.Errorf("stage %s: start %s: %w", job.Stage, job.App, err)
	}
	log.Info("job submitted", "stage", job.Stage, "app", job.App, "task_id", task.ID)

	jr := &store.LaunchJob{
		ID:        "job_" + uuid.New().String(),
		LaunchID:  rec.ID,
		Stage:     job.Stage,
		App:       job.App,
		TaskID:    task.ID,
		State:     string(task.Status),
		CreatedAt: time.Now().UTC(),
	}
	if l.Store != nil {
		if err := l.Store.AddJob(ctx, jr); err != nil {
			return fmt.Errorf("record job %s: %w", job.Stage, err)
		}
	}
	rec.Jobs = append(rec.Jobs, *jr)

	done, err := l.Platform.WaitForTask(ctx, task.ID, l.PollInterval)
	if err != nil {
		return fmt.Errorf("stage %s: wait for task %s: %w", job.Stage, task.ID, err)
	}
	jr.State = string(done.Status)
	rec.Jobs[len(rec.Jobs)-1].State = jr.State
	if l.Store != nil {
		if err := l.Store.UpdateJob(ctx, jr); err != nil {
			log.Warn("record job state", "stage", job.Stage, "error", err)
		}
	}
	if done.Status != bvbrc.TaskStateCompleted {
		return &JobFailedError{Stage: job.Stage, TaskID: task.ID, Status: string(done.Status)}
	}
	log.Info("job completed", "stage", job.Stage, "task_id", task.ID)

	// The job wrote new files; look again.
	run.caches.Invalidate(job.OutputPath)
	for token := range job.Results {
		glob, ok := pipeline.ResultGlob(token)
		if !ok {
			continue
		}
		matches, err := run.caches.Glob(ctx, l.Platform, job.OutputPath, glob)
		if err != nil {
			return fmt.Errorf("stage %s: find %s: %w", job.Stage, token, err)
		}
		if len(matches) == 0 {
			log.Warn("result not found", "stage", job.Stage, "token", token, "pattern", path.Join(job.OutputPath, glob))
			continue
		}
		outputs[token] = matches[0]
	}
	return nil
}

// taskPageSize is how many tasks one EnumerateTasksFiltered call asks for.
const taskPageSize = 1000

// checkIdle refuses to launch into a folder that a recorded launch or a
// queued or running platform task is still writing to.
func (l *Launcher) checkIdle(ctx context.Context, folder string) error {
	if l.Store != nil {
		if err := l.checkRecorded(ctx, folder); err != nil {
			return err
		}
	}

	want := strings.TrimSuffix(folder, "/")
	for _, state := range []bvbrc.TaskState{bvbrc.TaskStateQueued, bvbrc.TaskStateInProgress} {
		for offset := 0; ; offset += taskPageSize {
			tasks, err := l.Platform.EnumerateTasksFiltered(ctx, offset, taskPageSize, bvbrc.TaskFilter{Status: state})
			if err != nil {
				return fmt.Errorf("list %s tasks: %w", state, err)
			}
			for _, t := range tasks {
				if strings.TrimSuffix(t.OutputPath, "/") == want {
					return fmt.Errorf("%w: task %s (%s) is %s", ErrAlreadyRunning, t.ID, t.App, t.Status)
				}
			}
			if len(tasks) < taskPageSize {
				break
			}
		}
	}
	return nil
}

// checkRecorded refuses while a recorded launch for folder still has a
// queued or running task. A launch none of whose tasks is active was left
// behind by a process that died; it is marked failed.
func (l *Launcher) checkRecorded(ctx context.Context, folder string) error {
	for {
		active, err := l.Store.ActiveLaunch(ctx, folder)
		if err != nil {
			return fmt.Errorf("check launch history: %w", err)
		}
		if active == nil {
			return nil
		}

		jobs, err := l.Store.ListJobs(ctx, active.ID)
		if err != nil {
			return fmt.Errorf("check launch %s jobs: %w", active.ID, err)
		}
		var ids []string
		for _, j := range jobs {
			if j.TaskID != "" {
				ids = append(ids, j.TaskID)
			}
		}
		if len(ids) > 0 {
			tasks, err := l.Platform.QueryTasks(ctx, ids)
			if err != nil {
				return fmt.Errorf("query tasks of launch %s: %w", active.ID, err)
			}
			for _, j := range jobs {
				if t, ok := tasks[j.TaskID]; ok && t.Status.IsActive() {
					return fmt.Errorf("%w: launch %s started %s, task %s is %s", ErrAlreadyRunning,
						active.ID, active.CreatedAt.Format(time.RFC3339), t.ID, t.Status)
				}
			}
		}

		l.Logger.Warn("marking abandoned launch failed", "launch_id", active.ID, "folder", folder)
		finished := time.Now().UTC()
		active.State = store.LaunchStateFailed
		active.Error = "abandoned: no queued or running tasks"
		active.FinishedAt = &finished
		if err := l.Store.UpdateLaunch(ctx, active); err != nil {
			return fmt.Errorf("record abandoned launch %s: %w", active.ID, err)
		}
	}
}
