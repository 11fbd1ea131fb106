package launch

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/me/lrnalaunch/pkg/bvbrc"
)

// Caches memoizes remote lookups for the lifetime of one run. Entries are
// never evicted; a folder listing can be dropped with Invalidate once jobs
// have written to it.
type Caches struct {
	apps    map[string]*bvbrc.AppDescription
	folders map[string][]bvbrc.WorkspaceObject
	trees   map[string][]bvbrc.WorkspaceObject
}

// NewCaches returns empty caches.
func NewCaches() *Caches {
	return &Caches{
		apps:    map[string]*bvbrc.AppDescription{},
		folders: map[string][]bvbrc.WorkspaceObject{},
		trees:   map[string][]bvbrc.WorkspaceObject{},
	}
}

// App returns the description of appID, asking the app service once.
func (c *Caches) App(ctx context.Context, svc AppService, appID string) (*bvbrc.AppDescription, error) {
	if app, ok := c.apps[appID]; ok {
		return app, nil
	}
	app, err := svc.QueryAppDescription(ctx, appID)
	if err != nil {
		return nil, err
	}
	c.apps[appID] = app
	return app, nil
}

// Folder returns the objects directly inside folder.
func (c *Caches) Folder(ctx context.Context, ws Workspace, folder string) ([]bvbrc.WorkspaceObject, error) {
	folder = cleanFolder(folder)
	if objs, ok := c.folders[folder]; ok {
		return objs, nil
	}
	objs, err := list(ctx, ws, folder, false)
	if err != nil {
		return nil, err
	}
	c.folders[folder] = objs
	return objs, nil
}

// Tree returns every object below root, at any depth.
func (c *Caches) Tree(ctx context.Context, ws Workspace, root string) ([]bvbrc.WorkspaceObject, error) {
	root = cleanFolder(root)
	if objs, ok := c.trees[root]; ok {
		return objs, nil
	}
	objs, err := list(ctx, ws, root, true)
	if err != nil {
		return nil, err
	}
	c.trees[root] = objs
	return objs, nil
}

// Invalidate forgets the listing of folder.
func (c *Caches) Invalidate(folder string) {
	delete(c.folders, cleanFolder(folder))
}

func list(ctx context.Context, ws Workspace, folder string, recursive bool) ([]bvbrc.WorkspaceObject, error) {
	listing, err := ws.WorkspaceLs(ctx, bvbrc.WorkspaceLsInput{
		Paths:              []string{folder},
		Recursive:          recursive,
		ExcludeDirectories: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	// The service keys listings by the path as given, with or without
	// the trailing slash.
	objs, ok := listing[folder]
	if !ok {
		objs = listing[folder+"/"]
	}
	return objs, nil
}

// FindFile returns the object at the exact path p, or nil if there is none.
func (c *Caches) FindFile(ctx context.Context, ws Workspace, p string) (*bvbrc.WorkspaceObject, error) {
	objs, err := c.Folder(ctx, ws, path.Dir(p))
	if err != nil {
		return nil, err
	}
	for i := range objs {
		if objs[i].Path == p {
			return &objs[i], nil
		}
	}
	return nil, nil
}

// FindByName returns the object named name anywhere below root, or nil.
// When several match, the most recently created wins.
func (c *Caches) FindByName(ctx context.Context, ws Workspace, root, name string) (*bvbrc.WorkspaceObject, error) {
	objs, err := c.Tree(ctx, ws, root)
	if err != nil {
		return nil, err
	}
	var matches []bvbrc.WorkspaceObject
	for _, o := range objs {
		if path.Base(o.Path) == name {
			matches = append(matches, o)
		}
	}
	return newest(matches), nil
}

// Glob returns the objects in folder whose name matches pattern, newest first.
func (c *Caches) Glob(ctx context.Context, ws Workspace, folder, pattern string) ([]bvbrc.WorkspaceObject, error) {
	objs, err := c.Folder(ctx, ws, folder)
	if err != nil {
		return nil, err
	}
	var matches []bvbrc.WorkspaceObject
	for _, o := range objs {
		ok, err := path.Match(pattern, path.Base(o.Path))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, o)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreationTime.After(matches[j].CreationTime)
	})
	return matches, nil
}

func newest(objs []bvbrc.WorkspaceObject) *bvbrc.WorkspaceObject {
	if len(objs) == 0 {
		return nil
	}
	best := objs[0]
	for _, o := range objs[1:] {
		if o.CreationTime.After(best.CreationTime) {
			best = o
		}
	}
	return &best
}

func cleanFolder(folder string) string {
	if folder == "/" {
		return folder
	}
	return strings.TrimSuffix(folder, "/")
}
