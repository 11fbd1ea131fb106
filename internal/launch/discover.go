package launch

import (
	"context"
	"fmt"
	"path"

	"github.com/me/lrnalaunch/internal/pipeline"
)

// fastqName is the file name a fastq accession is stored under.
func fastqName(accession string) string {
	return accession + ".fastq.gz"
}

// FindInputsAndPriors locates the replicate's fastq files anywhere in the
// project and the results earlier runs left in the results folder.
//
// Fastq files that cannot be found are recorded in run.MissingReads rather
// than failing here: they only matter if a stage that reads them has to run.
func FindInputsAndPriors(ctx context.Context, ws Workspace, run *Run) error {
	sets := map[string][]string{pipeline.TokenReads1Set: run.Replicate.Reads1}
	if run.PairedEnd {
		sets[pipeline.TokenReads2Set] = run.Replicate.Reads2
	}
	for token, accessions := range sets {
		run.Reads[token] = nil
		run.MissingReads[token] = nil
		for _, acc := range accessions {
			obj, err := run.caches.FindByName(ctx, ws, run.Project, fastqName(acc))
			if err != nil {
				return fmt.Errorf("find %s: %w", fastqName(acc), err)
			}
			if obj == nil {
				run.MissingReads[token] = append(run.MissingReads[token], fastqName(acc))
				continue
			}
			run.Reads[token] = append(run.Reads[token], obj.Path)
		}
	}

	for _, stage := range run.Stages {
		for _, token := range stage.ResultTokens() {
			glob, ok := pipeline.ResultGlob(token)
			if !ok {
				return fmt.Errorf("stage %s result %s has no filename pattern", stage.Name, token)
			}
			matches, err := run.caches.Glob(ctx, ws, run.ResultFolder, glob)
			if err != nil {
				return fmt.Errorf("find prior %s: %w", token, err)
			}
			if len(matches) > 0 {
				run.Priors[token] = matches[0]
			}
		}
	}
	return nil
}

// FindReferences locates every reference file the run needs in the
// reference folder. Any missing file fails the run.
func FindReferences(ctx context.Context, ws Workspace, run *Run) error {
	set, err := pipeline.References(run.Genome, run.Sex, run.Annotation)
	if err != nil {
		return &ConfigError{Message: err.Error()}
	}
	for _, kind := range pipeline.ReferenceKinds() {
		p := path.Join(run.RefFolder, set[kind])
		obj, err := run.caches.FindFile(ctx, ws, p)
		if err != nil {
			return fmt.Errorf("find %s: %w", kind.Label(), err)
		}
		if obj == nil {
			return &MissingFileError{What: kind.Label() + " file", Paths: []string{p}}
		}
		run.References[kind] = *obj
	}
	return nil
}
