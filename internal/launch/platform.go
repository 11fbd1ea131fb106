package launch

import (
	"context"
	"time"

	"github.com/me/lrnalaunch/pkg/bvbrc"
)

// Workspace is the remote file store results and references live in.
type Workspace interface {
	WorkspaceLs(ctx context.Context, input bvbrc.WorkspaceLsInput) (map[string][]bvbrc.WorkspaceObject, error)
	WorkspaceCreateFolder(ctx context.Context, path string) (*bvbrc.WorkspaceObject, error)
}

// AppService runs stage applications remotely.
type AppService interface {
	QueryAppDescription(ctx context.Context, appID string) (*bvbrc.AppDescription, error)
	StartApp(ctx context.Context, input bvbrc.StartAppInput) (*bvbrc.Task, error)
	QueryTasks(ctx context.Context, taskIDs []string) (map[string]bvbrc.Task, error)
	WaitForTask(ctx context.Context, taskID string, pollInterval time.Duration) (*bvbrc.Task, error)
	EnumerateTasksFiltered(ctx context.Context, offset, limit int, filter bvbrc.TaskFilter) ([]bvbrc.Task, error)
}

// Platform is the full remote compute platform.
type Platform interface {
	Workspace
	AppService
}

var _ Platform = (*bvbrc.Client)(nil)
