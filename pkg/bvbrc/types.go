package bvbrc

import (
	"encoding/json"
	"time"
)

// TaskState is the App Service status of a job.
type TaskState string

const (
	TaskStateQueued     TaskState = "queued"
	TaskStateInProgress TaskState = "in-progress"
	TaskStateCompleted  TaskState = "completed"
	TaskStateFailed     TaskState = "failed"
	TaskStateDeleted    TaskState = "deleted"
	TaskStateSuspended  TaskState = "suspended"
)

// IsTerminal returns true if the state is a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateDeleted:
		return true
	default:
		return false
	}
}

// IsActive returns true while the task still occupies its output folder.
func (s TaskState) IsActive() bool {
	return s == TaskStateQueued || s == TaskStateInProgress
}

// Task is a job submitted to the App Service.
type Task struct {
	ID            string         `json:"id"`
	App           string         `json:"app"`
	Owner         string         `json:"owner"`
	Status        TaskState      `json:"status"`
	SubmitTime    *time.Time     `json:"submit_time,omitempty"`
	StartTime     *time.Time     `json:"start_time,omitempty"`
	CompletedTime *time.Time     `json:"completed_time,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
}

// AppDescription describes an application that can be started.
type AppDescription struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Parameters  []AppParameter `json:"parameters,omitempty"`
}

// HasParameter reports whether the app declares a parameter with the given id.
// An app that declares no parameters accepts anything.
func (a *AppDescription) HasParameter(id string) bool {
	if len(a.Parameters) == 0 {
		return true
	}
	for _, p := range a.Parameters {
		if p.ID == id {
			return true
		}
	}
	return false
}

// AppParameter describes a single parameter for an application.
type AppParameter struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// WorkspaceObjectType is the workspace type tag of an object.
type WorkspaceObjectType string

const (
	WorkspaceTypeFolder      WorkspaceObjectType = "folder"
	WorkspaceTypeJobResult   WorkspaceObjectType = "job_result"
	WorkspaceTypeReads       WorkspaceObjectType = "reads"
	WorkspaceTypeUnspecified WorkspaceObjectType = "unspecified"
)

// IsFolder reports whether objects of this type can contain other objects.
func (t WorkspaceObjectType) IsFolder() bool {
	return t == WorkspaceTypeFolder || t == WorkspaceTypeJobResult
}

// WorkspaceObject is a file or folder in the workspace.
type WorkspaceObject struct {
	Path         string              `json:"path"`
	Type         WorkspaceObjectType `json:"type"`
	Owner        string              `json:"owner"`
	CreationTime time.Time           `json:"creation_time"`
	ID           string              `json:"id"`
	Size         int64               `json:"size"`
	UserMetadata map[string]string   `json:"user_metadata"`
}

// RPCRequest is a JSON-RPC 1.1 request envelope.
type RPCRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Version string `json:"version"`
	Params  []any  `json:"params"`
}

// RPCResponse is a JSON-RPC 1.1 response envelope.
type RPCResponse struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// AuthToken is a parsed BV-BRC token.
type AuthToken struct {
	Raw      string
	Username string
	TokenID  string
	Expiry   time.Time
}

// IsExpired returns true if the token has expired.
func (t *AuthToken) IsExpired() bool {
	return time.Now().After(t.Expiry)
}
