package launch

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/me/lrnalaunch/internal/pipeline"
)

// Report writes a human-readable summary of what the workflow will do.
func Report(w io.Writer, run *Run, plan *Plan, wf *Workflow) {
	fmt.Fprintf(w, "Running: %s\n", run.Title)
	fmt.Fprintf(w, "         %s\n", run.SubTitle)
	fmt.Fprintf(w, "Name:    %s\n", run.Name)
	fmt.Fprintf(w, "Folder:  %s\n", run.ResultFolder)

	fmt.Fprintln(w, "References:")
	for _, kind := range pipeline.ReferenceKinds() {
		ref, ok := run.References[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-12s %s (%s)\n", kind.Label(), ref.Path, humanize.Bytes(uint64(max(ref.Size, 0))))
	}

	fmt.Fprintln(w, "Reads:")
	for _, token := range []string{pipeline.TokenReads1Set, pipeline.TokenReads2Set} {
		for _, p := range run.Reads[token] {
			fmt.Fprintf(w, "  %s\n", p)
		}
		for _, name := range run.MissingReads[token] {
			fmt.Fprintf(w, "  %s (not found)\n", name)
		}
	}

	if plan.Empty() {
		fmt.Fprintln(w, "* All expected results are in the results folder, so there is nothing to do.")
		return
	}

	fmt.Fprintln(w, "Steps:")
	for _, step := range plan.Steps {
		if step.Run {
			fmt.Fprintf(w, "  run   %-16s %s (%s)\n", step.Stage.Name, step.Stage.App, step.Reason)
			continue
		}
		var reused []string
		for _, token := range step.Stage.ResultTokens() {
			if prior, ok := run.Priors[token]; ok {
				reused = append(reused, path.Base(prior.Path))
			}
		}
		fmt.Fprintf(w, "  reuse %-16s %s\n", step.Stage.Name, strings.Join(reused, ", "))
	}

	if wf != nil {
		fmt.Fprintf(w, "Workflow %s: %d job(s)\n", wf.Name, len(wf.Jobs))
		for _, job := range wf.Jobs {
			if len(job.DependsOn) == 0 {
				fmt.Fprintf(w, "  %s\n", job.Stage)
				continue
			}
			fmt.Fprintf(w, "  %s <- %s\n", job.Stage, strings.Join(job.DependsOn, ", "))
		}
	}
}
