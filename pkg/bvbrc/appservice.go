package bvbrc

import (
	"context"
	"fmt"
	"time"
)

// QueryAppDescription returns the description of a single application.
func (c *Client) QueryAppDescription(ctx context.Context, appID string) (*AppDescription, error) {
	const op = "AppService.query_app_description"
	resp, err := c.CallAppService(ctx, op, appID)
	if err != nil {
		return nil, err
	}
	app, ok, err := unmarshalFirst[AppDescription](op, resp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Op: op, Code: ErrCodeNotFound, Message: fmt.Sprintf("app %q not found", appID)}
	}
	return &app, nil
}

// StartAppInput holds the arguments of AppService.start_app.
type StartAppInput struct {
	AppID      string
	Params     map[string]any
	OutputPath string
}

// StartApp submits a job and returns the queued task.
func (c *Client) StartApp(ctx context.Context, input StartAppInput) (*Task, error) {
	const op = "AppService.start_app"
	resp, err := c.CallAppService(ctx, op, input.AppID, input.Params, input.OutputPath)
	if err != nil {
		return nil, err
	}
	task, ok, err := unmarshalFirst[Task](op, resp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(op, "no task returned from server")
	}
	return &task, nil
}

// QueryTasks returns the current state of the given tasks, keyed by id.
func (c *Client) QueryTasks(ctx context.Context, taskIDs []string) (map[string]Task, error) {
	const op = "AppService.query_tasks"
	resp, err := c.CallAppService(ctx, op, taskIDs)
	if err != nil {
		return nil, err
	}
	tasks, ok, err := unmarshalFirst[map[string]Task](op, resp)
	if err != nil {
		return nil, err
	}
	if !ok || tasks == nil {
		return map[string]Task{}, nil
	}
	return tasks, nil
}

// QueryTask returns the current state of one task.
func (c *Client) QueryTask(ctx context.Context, taskID string) (*Task, error) {
	tasks, err := c.QueryTasks(ctx, []string{taskID})
	if err != nil {
		return nil, err
	}
	task, ok := tasks[taskID]
	if !ok {
		return nil, &Error{Op: "QueryTask", Code: ErrCodeNotFound, Message: fmt.Sprintf("task %q not found", taskID)}
	}
	return &task, nil
}

// TaskFilter narrows EnumerateTasksFiltered.
type TaskFilter struct {
	Status TaskState
	App    string
}

// EnumerateTasksFiltered lists the caller's tasks matching filter.
func (c *Client) EnumerateTasksFiltered(ctx context.Context, offset, limit int, filter TaskFilter) ([]Task, error) {
	const op = "AppService.enumerate_tasks_filtered"
	f := map[string]any{}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.App != "" {
		f["app"] = filter.App
	}
	resp, err := c.CallAppService(ctx, op, offset, limit, f)
	if err != nil {
		return nil, err
	}
	tasks, _, err := unmarshalFirst[[]Task](op, resp)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// WaitForTask polls a task until it reaches a terminal state.
func (c *Client) WaitForTask(ctx context.Context, taskID string, pollInterval time.Duration) (*Task, error) {
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := c.QueryTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		c.logger.Debug("task pending", "task_id", taskID, "status", task.Status)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
