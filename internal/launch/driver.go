package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/me/lrnalaunch/internal/encoded"
	"github.com/me/lrnalaunch/internal/store"
)

// Driver runs the whole launch sequence for one replicate.
type Driver struct {
	Source   encoded.Source
	Platform Platform
	Launcher *Launcher
	Out      io.Writer
	Logger   *slog.Logger
}

// Result is what one Execute call produced.
type Result struct {
	Run      *Run
	Plan     *Plan
	Workflow *Workflow

	// Launch is nil unless the workflow was launched.
	Launch *store.Launch
}

// Execute fetches the experiment, resolves the run, locates its inputs,
// priors and references, decides which stages must run, builds the
// workflow and reports it. The workflow is launched only when opts.Run is
// set and opts.Test is not.
func (d *Driver) Execute(ctx context.Context, opts Options) (*Result, error) {
	log := d.Logger.With("experiment", opts.Experiment)

	log.Info("retrieving experiment specifics")
	exp, err := d.Source.Experiment(ctx, opts.Experiment)
	if errors.Is(err, encoded.ErrMetadata) {
		return nil, configErrorf("%v", err)
	}
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", opts.Experiment, err)
	}

	run, err := Resolve(opts, exp)
	if err != nil {
		return nil, err
	}
	res := &Result{Run: run}
	log = log.With("run", run.Name)
	log.Debug("run resolved", "genome", run.Genome, "annotation", run.Annotation,
		"sex", run.Sex, "paired_end", run.PairedEnd, "folder", run.ResultFolder)

	if err := FindInputsAndPriors(ctx, d.Platform, run); err != nil {
		return res, err
	}
	log.Debug("inputs located", "priors", len(run.Priors))

	if err := FindReferences(ctx, d.Platform, run); err != nil {
		return res, err
	}

	plan, err := DetermineSteps(run, opts.Force)
	if err != nil {
		return res, err
	}
	res.Plan = plan

	wf, err := Build(ctx, d.Platform, run, plan)
	if err != nil {
		return res, err
	}
	res.Workflow = wf

	Report(d.Out, run, plan, wf)

	switch {
	case plan.Empty():
		return res, nil
	case opts.Test:
		fmt.Fprintln(d.Out, "* Test run: nothing launched.")
		return res, nil
	case !opts.Run:
		fmt.Fprintln(d.Out, "* Workflow built but not launched; use --run to launch it.")
		return res, nil
	}

	rec, err := d.Launcher.Launch(ctx, run, wf)
	res.Launch = rec
	if err != nil {
		return res, err
	}
	fmt.Fprintf(d.Out, "* Launched %s as %s\n", wf.Name, rec.ID)
	return res, nil
}
