package launch

import (
	"context"
	"fmt"
	"sort"

	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

// Binding supplies one application argument. Either Paths holds located
// files, or FromStage names the earlier job whose Token result feeds it.
type Binding struct {
	Paths     []string
	FromStage string
	Token     string

	// List marks arguments that take a list of files.
	List bool
}

// IsStepOutput reports whether the binding waits on an earlier job.
func (b Binding) IsStepOutput() bool {
	return b.FromStage != ""
}

// Job is one application run in a workflow.
type Job struct {
	Stage      string
	App        string
	OutputPath string

	// Params holds the non-file arguments.
	Params map[string]any

	// Inputs maps argument names to their bindings.
	Inputs map[string]Binding

	// Results maps result tokens to the application's output names.
	Results map[string]string

	// DependsOn lists the stages whose results this job reads.
	DependsOn []string
}

// Workflow is the ordered set of jobs to run for one replicate.
type Workflow struct {
	Name        string
	Title       string
	SubTitle    string
	Description string
	Folder      string
	Jobs        []Job
}

// Build assembles the jobs of the running steps, binding each input to a
// located file or to the output of an earlier job. Every application is
// checked with the app service, once per run.
func Build(ctx context.Context, svc AppService, run *Run, plan *Plan) (*Workflow, error) {
	wf := &Workflow{
		Name:        run.Name,
		Title:       run.Title,
		SubTitle:    run.SubTitle,
		Description: run.Description,
		Folder:      run.ResultFolder,
	}

	produced := map[string]string{}
	for _, step := range plan.Steps {
		if !step.Run {
			continue
		}
		stage := step.Stage
		app, err := run.caches.App(ctx, svc, stage.App)
		if err != nil {
			return nil, fmt.Errorf("stage %s: app %s: %w", stage.Name, stage.App, err)
		}

		job := Job{
			Stage:      stage.Name,
			App:        stage.App,
			OutputPath: run.ResultFolder,
			Params:     map[string]any{},
			Inputs:     map[string]Binding{},
			Results:    stage.Results,
		}
		for param, arg := range stage.Params {
			v, ok := run.Params[param]
			if !ok {
				return nil, fmt.Errorf("stage %s: no value for parameter %s", stage.Name, param)
			}
			job.Params[arg] = v
		}

		deps := map[string]bool{}
		for _, token := range stage.InputTokens() {
			arg := stage.Inputs[token]
			b, err := bind(run, produced, token)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
			}
			job.Inputs[arg] = b
			if b.IsStepOutput() {
				deps[b.FromStage] = true
			}
		}
		for dep := range deps {
			job.DependsOn = append(job.DependsOn, dep)
		}
		sort.Strings(job.DependsOn)

		for arg := range job.Params {
			if !app.HasParameter(arg) {
				return nil, fmt.Errorf("stage %s: app %s has no parameter %s", stage.Name, stage.App, arg)
			}
		}
		for arg := range job.Inputs {
			if !app.HasParameter(arg) {
				return nil, fmt.Errorf("stage %s: app %s has no input %s", stage.Name, stage.App, arg)
			}
		}

		for _, token := range stage.ResultTokens() {
			produced[token] = stage.Name
		}
		wf.Jobs = append(wf.Jobs, job)
	}
	return wf, nil
}

func bind(run *Run, produced map[string]string, token string) (Binding, error) {
	switch {
	case token == pipeline.TokenReads1Set || token == pipeline.TokenReads2Set:
		return Binding{Paths: run.Reads[token], List: true}, nil
	case pipeline.IsExternalToken(token):
		ref, ok := run.References[pipeline.ReferenceKind(token)]
		if !ok {
			return Binding{}, &MissingFileError{What: pipeline.ReferenceKind(token).Label() + " file", Paths: []string{token}}
		}
		return Binding{Paths: []string{ref.Path}}, nil
	}
	if stage, ok := produced[token]; ok {
		return Binding{FromStage: stage, Token: token}, nil
	}
	if prior, ok := run.Priors[token]; ok {
		return Binding{Paths: []string{prior.Path}}, nil
	}
	return Binding{}, &MissingFileError{What: token, Paths: []string{run.ResultFolder}}
}

// params flattens a job's arguments for StartApp. Step outputs are taken
// from outputs, keyed by result token.
func (j Job) params(outputs map[string]bvbrc.WorkspaceObject) (map[string]any, error) {
	out := make(map[string]any, len(j.Params)+len(j.Inputs))
	for k, v := range j.Params {
		out[k] = v
	}
	for arg, b := range j.Inputs {
		paths := b.Paths
		if b.IsStepOutput() {
			obj, ok := outputs[b.Token]
			if !ok {
				return nil, &MissingFileError{What: b.Token + " from " + b.FromStage, Paths: []string{j.OutputPath}}
			}
			paths = []string{obj.Path}
		}
		if b.List {
			out[arg] = paths
		} else if len(paths) > 0 {
			out[arg] = paths[0]
		}
	}
	return out, nil
}
