package bvbrc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WorkspaceLsInput holds the arguments of Workspace.ls.
type WorkspaceLsInput struct {
	Paths              []string
	Recursive          bool
	ExcludeDirectories bool
}

// WorkspaceLs lists the contents of workspace folders, keyed by folder path.
// A folder that does not exist is reported with an empty listing.
func (c *Client) WorkspaceLs(ctx context.Context, input WorkspaceLsInput) (map[string][]WorkspaceObject, error) {
	const op = "Workspace.ls"
	params := map[string]any{"paths": input.Paths}
	if input.Recursive {
		params["recursive"] = true
	}
	if input.ExcludeDirectories {
		params["excludeDirectories"] = true
	}

	result := make(map[string][]WorkspaceObject, len(input.Paths))
	resp, err := c.CallWorkspace(ctx, op, params)
	if err != nil {
		if IsMissingObject(err) {
			return result, nil
		}
		return nil, err
	}

	// Result is [{path: [tuple, ...]}]
	listing, _, err := unmarshalFirst[map[string][][]any](op, resp)
	if err != nil {
		return nil, err
	}
	for path, tuples := range listing {
		objects := make([]WorkspaceObject, 0, len(tuples))
		for _, tuple := range tuples {
			obj, err := parseObjectTuple(tuple)
			if err != nil {
				c.logger.Debug("skipping malformed workspace entry", "path", path, "error", err)
				continue
			}
			objects = append(objects, obj)
		}
		result[path] = objects
	}
	return result, nil
}

// WorkspaceCreateFolder creates a folder, including missing parents.
// An existing folder is not an error.
func (c *Client) WorkspaceCreateFolder(ctx context.Context, path string) (*WorkspaceObject, error) {
	const op = "Workspace.create"
	params := map[string]any{
		"objects": [][]any{{path, string(WorkspaceTypeFolder), map[string]string{}, nil}},
	}
	resp, err := c.CallWorkspace(ctx, op, params)
	if err != nil {
		if isAlreadyExists(err) {
			return &WorkspaceObject{Path: path, Type: WorkspaceTypeFolder}, nil
		}
		return nil, err
	}
	tuples, ok, err := unmarshalFirst[[][]any](op, resp)
	if err != nil {
		return nil, err
	}
	if !ok || len(tuples) == 0 {
		return nil, newError(op, "no object returned from server")
	}
	obj, err := parseObjectTuple(tuples[0])
	if err != nil {
		return nil, wrapError(op, err)
	}
	return &obj, nil
}

// IsMissingObject reports whether err means a workspace path does not exist.
// The Workspace service reports this as a generic server error, so the
// message is inspected as well as the code.
func IsMissingObject(err error) bool {
	if IsNotFoundError(err) {
		return true
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

func isAlreadyExists(err error) bool {
	var e *Error
	return errors.As(err, &e) && strings.Contains(strings.ToLower(e.Message), "already exists")
}

// parseObjectTuple decodes the positional object tuple returned by the
// Workspace: [name, type, parent, creation_time, id, owner, size, user_meta, ...].
// The full path is parent + name.
func parseObjectTuple(tuple []any) (WorkspaceObject, error) {
	var obj WorkspaceObject
	if len(tuple) < 8 {
		return obj, fmt.Errorf("tuple too short: %d elements", len(tuple))
	}

	name, _ := tuple[0].(string)
	parent, _ := tuple[2].(string)
	if name == "" {
		return obj, fmt.Errorf("tuple has no name")
	}
	obj.Path = joinWorkspacePath(parent, name)

	if s, ok := tuple[1].(string); ok {
		obj.Type = WorkspaceObjectType(s)
	}
	if s, ok := tuple[3].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			obj.CreationTime = t
		}
	}
	if s, ok := tuple[4].(string); ok {
		obj.ID = s
	}
	if s, ok := tuple[5].(string); ok {
		obj.Owner = s
	}
	switch v := tuple[6].(type) {
	case float64:
		obj.Size = int64(v)
	case json.Number:
		obj.Size, _ = v.Int64()
	}
	if m, ok := tuple[7].(map[string]any); ok {
		obj.UserMetadata = make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				obj.UserMetadata[k] = s
			}
		}
	}
	return obj, nil
}

func joinWorkspacePath(parent, name string) string {
	if strings.HasPrefix(name, "/") || parent == "" {
		return name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}
