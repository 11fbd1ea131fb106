package launch

import (
	"path"

	"github.com/me/lrnalaunch/internal/pipeline"
)

// PlannedStep is one stage of the run and whether it has to run.
type PlannedStep struct {
	Stage pipeline.Stage
	Run   bool

	// Reason says why the stage runs: "forced", "missing <token>" or
	// "input <token> is rebuilt".
	Reason string
}

// Plan is the outcome of DetermineSteps, in stage order.
type Plan struct {
	Steps []PlannedStep
}

// Running returns the steps that have to run.
func (p *Plan) Running() []PlannedStep {
	var out []PlannedStep
	for _, s := range p.Steps {
		if s.Run {
			out = append(out, s)
		}
	}
	return out
}

// Empty reports whether nothing has to run.
func (p *Plan) Empty() bool {
	return len(p.Running()) == 0
}

// DetermineSteps decides which stages must run. A stage runs when force is
// set, when any of its results has no prior, or when any of its inputs is
// produced by a stage that runs. Every input of a running stage must then be
// available from a prior, a reference, the reads, or an earlier running
// stage.
func DetermineSteps(run *Run, force bool) (*Plan, error) {
	plan := &Plan{Steps: make([]PlannedStep, 0, len(run.Stages))}
	producer := map[string]int{}

	for i, stage := range run.Stages {
		step := PlannedStep{Stage: stage}
		switch {
		case force:
			step.Run, step.Reason = true, "forced"
		default:
			for _, token := range stage.ResultTokens() {
				if _, ok := run.Priors[token]; !ok {
					step.Run, step.Reason = true, "missing "+token
					break
				}
			}
			if step.Run {
				break
			}
			for _, token := range stage.InputTokens() {
				if j, ok := producer[token]; ok && plan.Steps[j].Run {
					step.Run, step.Reason = true, "input "+token+" is rebuilt"
					break
				}
			}
		}
		for _, token := range stage.ResultTokens() {
			producer[token] = i
		}
		plan.Steps = append(plan.Steps, step)
	}

	for _, step := range plan.Steps {
		if !step.Run {
			continue
		}
		for _, token := range step.Stage.InputTokens() {
			if err := inputAvailable(run, plan, producer, token); err != nil {
				return nil, err
			}
		}
	}
	return plan, nil
}

func inputAvailable(run *Run, plan *Plan, producer map[string]int, token string) error {
	switch {
	case token == pipeline.TokenReads1Set || token == pipeline.TokenReads2Set:
		if missing := run.MissingReads[token]; len(missing) > 0 {
			return &MissingFileError{What: "reads file", Paths: missing}
		}
		if len(run.Reads[token]) == 0 {
			return &MissingFileError{What: "reads for", Paths: []string{token}}
		}
		return nil
	case pipeline.IsExternalToken(token):
		if _, ok := run.References[pipeline.ReferenceKind(token)]; !ok {
			return &MissingFileError{What: pipeline.ReferenceKind(token).Label() + " file", Paths: []string{token}}
		}
		return nil
	}
	if j, ok := producer[token]; ok && plan.Steps[j].Run {
		return nil
	}
	if _, ok := run.Priors[token]; ok {
		return nil
	}
	glob, _ := pipeline.ResultGlob(token)
	return &MissingFileError{What: token, Paths: []string{path.Join(run.ResultFolder, glob)}}
}
