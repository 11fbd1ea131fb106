package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/internal/config"
	"github.com/me/lrnalaunch/internal/launch"
	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

type check struct {
	Name   string
	Passed bool
	Detail string
}

func newVerifyCmd(cfg config.LaunchConfig) *cobra.Command {
	var (
		project string
		refLoc  string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the token, workspace and pipeline apps on BV-BRC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			token, err := bvbrc.LoadToken()
			if err != nil {
				return fmt.Errorf("%w: run 'lrna-launch login' first", err)
			}
			results := []check{checkTokenFormat(token)}

			client, err := newPlatformClient()
			if err != nil {
				results = append(results, check{Name: "Client", Detail: err.Error()})
				return printReport(cmd.OutOrStdout(), results)
			}
			home := projectPath(client.Username(), project)
			results = append(results,
				checkFolder(ctx, client, "Project folder", home),
				checkFolder(ctx, client, "Reference folder", launch.ProjectFolder(home, refLoc)),
			)
			for _, app := range pipelineApps() {
				results = append(results, checkApp(ctx, client, app))
			}
			results = append(results, checkQueue(ctx, client))
			return printReport(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&project, "project", cfg.Project, "Workspace to check, or an absolute workspace path")
	cmd.Flags().StringVar(&refLoc, "ref-loc", cfg.RefLoc, "Folder holding reference files")
	return cmd
}

// pipelineApps lists the distinct apps of both read layouts.
func pipelineApps() []string {
	var apps []string
	for _, paired := range []bool{false, true} {
		for _, s := range pipeline.Stages(paired) {
			if !slices.Contains(apps, s.App) {
				apps = append(apps, s.App)
			}
		}
	}
	slices.Sort(apps)
	return apps
}

func checkTokenFormat(raw string) check {
	fields := make(map[string]bool)
	for _, part := range strings.Split(raw, "|") {
		if k, _, ok := strings.Cut(part, "="); ok {
			fields[k] = true
		}
	}
	var missing []string
	for _, key := range []string{"un", "tokenid", "expiry", "sig"} {
		if !fields[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return check{Name: "Token format", Detail: "missing fields: " + strings.Join(missing, ", ")}
	}

	info, err := bvbrc.ParseToken(raw)
	if err != nil {
		return check{Name: "Token format", Detail: err.Error()}
	}
	if info.IsExpired() {
		return check{Name: "Token format", Detail: "expired " + info.Expiry.Format("2006-01-02")}
	}
	return check{
		Name:   "Token format",
		Passed: true,
		Detail: fmt.Sprintf("user=%s, expires %s", info.Username, info.Expiry.Format("2006-01-02")),
	}
}

func checkFolder(ctx context.Context, ws launch.Workspace, name, folder string) check {
	folder = strings.TrimSuffix(folder, "/")
	listing, err := ws.WorkspaceLs(ctx, bvbrc.WorkspaceLsInput{Paths: []string{folder}})
	if err != nil {
		return check{Name: name, Detail: err.Error()}
	}
	objs, ok := listing[folder]
	if !ok || len(objs) == 0 {
		return check{Name: name, Detail: folder + " is empty or missing"}
	}
	return check{Name: name, Passed: true, Detail: fmt.Sprintf("%d items in %s", len(objs), folder)}
}

func checkApp(ctx context.Context, svc launch.AppService, appID string) check {
	name := "App " + appID
	app, err := svc.QueryAppDescription(ctx, appID)
	if err != nil {
		return check{Name: name, Detail: err.Error()}
	}
	detail := app.Label
	if detail == "" {
		detail = app.ID
	}
	return check{Name: name, Passed: true, Detail: fmt.Sprintf("%s, %d parameters", detail, len(app.Parameters))}
}

func checkQueue(ctx context.Context, svc launch.AppService) check {
	n := 0
	for _, state := range []bvbrc.TaskState{bvbrc.TaskStateQueued, bvbrc.TaskStateInProgress} {
		tasks, err := svc.EnumerateTasksFiltered(ctx, 0, 1000, bvbrc.TaskFilter{Status: state})
		if err != nil {
			return check{Name: "Task queue", Detail: err.Error()}
		}
		n += len(tasks)
	}
	return check{Name: "Task queue", Passed: true, Detail: fmt.Sprintf("%d queued or running", n)}
}

func printReport(w io.Writer, results []check) error {
	fmt.Fprintln(w, "BV-BRC Verification Report")
	fmt.Fprintln(w, "==========================")

	failed := 0
	for _, r := range results {
		tag := "PASS"
		if !r.Passed {
			tag = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", tag, r.Name, r.Detail)
	}
	fmt.Fprintf(w, "\nSummary: %d/%d passed\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
