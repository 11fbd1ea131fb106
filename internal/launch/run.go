package launch

import (
	"fmt"
	"path"
	"strings"

	"github.com/me/lrnalaunch/internal/encoded"
	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

const pipelineDescription = "The ENCODE RNA Seq pipeline for long RNAs"

// Run is the resolved configuration of one replicate. It is built once per
// invocation and carries everything discovered about it along the way.
type Run struct {
	Experiment string
	Replicate  encoded.Replicate

	Genome     string
	Annotation string
	Sex        string
	PairedEnd  bool

	Project      string
	RefFolder    string
	ResultFolder string

	Name        string
	Title       string
	SubTitle    string
	Description string

	// Params are the non-file values stages draw their parameters from.
	Params map[string]any

	// Stages are the stages of the replicate's read layout, in order.
	Stages []pipeline.Stage

	// Reads maps each reads-set token to the located fastq paths.
	Reads map[string][]string

	// MissingReads maps each reads-set token to the fastq names that
	// could not be found.
	MissingReads map[string][]string

	// Priors maps result tokens to files left by earlier runs.
	Priors map[string]bvbrc.WorkspaceObject

	// References maps each reference kind to its located file.
	References map[pipeline.ReferenceKind]bvbrc.WorkspaceObject

	caches *Caches
}

// Caches returns the lookup caches owned by the run.
func (r *Run) Caches() *Caches {
	return r.caches
}

// Resolve checks the experiment against the options and derives the run
// configuration. Checks happen in order: assay type, genome, annotation,
// replicate.
func Resolve(opts Options, exp *encoded.Experiment) (*Run, error) {
	opts = opts.withDefaults()
	if exp == nil {
		return nil, configErrorf("no metadata for experiment %s", opts.Experiment)
	}

	if exp.AssayType != encoded.AssayLongRNASeq {
		return nil, configErrorf("experiment %s is not for %s but for '%s'",
			exp.Accession, encoded.AssayLongRNASeq, exp.AssayType)
	}

	genome := exp.Genome
	if !pipeline.GenomeSupported(genome) {
		return nil, configErrorf("experiment %s: organism '%s' has no supported genome", exp.Accession, exp.Organism)
	}

	anno := opts.Annotation
	if anno == "" {
		anno = pipeline.DefaultAnnotation
	}
	if genome != pipeline.DefaultGenome && anno == pipeline.DefaultAnnotation {
		anno, _ = pipeline.GenomeDefaultAnnotation(genome)
	}
	if !pipeline.AnnotationAllowed(genome, anno) {
		return nil, configErrorf("%s has no %s annotation", genome, anno)
	}

	if opts.BioRep == 0 {
		return nil, configErrorf("long RNA-seq pipeline does not support combined-replicate processing")
	}
	rep, ok := exp.Replicate(opts.BioRep, opts.TechRep)
	if !ok {
		return nil, configErrorf("experiment %s has no replicate rep%d_%d", exp.Accession, opts.BioRep, opts.TechRep)
	}
	if len(rep.Reads1) == 0 {
		return nil, configErrorf("experiment %s %s has no fastq files", exp.Accession, rep.RepTech())
	}
	if rep.PairedEnd && len(rep.Reads2) == 0 {
		return nil, configErrorf("experiment %s %s is paired-end but has no read 2 fastq files", exp.Accession, rep.RepTech())
	}

	sex := exp.Sex
	if rep.Sex != "" {
		sex = rep.Sex
	}

	r := &Run{
		Experiment:   exp.Accession,
		Replicate:    *rep,
		Genome:       genome,
		Annotation:   anno,
		Sex:          encoded.NormalizeSex(sex),
		PairedEnd:    rep.PairedEnd,
		Project:      folderPath(opts.Project),
		Description:  pipelineDescription,
		Stages:       pipeline.Stages(rep.PairedEnd),
		Reads:        map[string][]string{},
		MissingReads: map[string][]string{},
		Priors:       map[string]bvbrc.WorkspaceObject{},
		References:   map[pipeline.ReferenceKind]bvbrc.WorkspaceObject{},
		caches:       NewCaches(),
	}
	r.RefFolder = ProjectFolder(r.Project, opts.RefLoc)
	r.ResultFolder = folderPath(path.Join(ProjectFolder(r.Project, opts.ResultsLoc), exp.Accession, rep.RepTech()))

	r.Params = map[string]any{
		"nthreads":   opts.NThreads,
		"rnd_seed":   opts.RandomSeed,
		"library_id": rep.LibraryID,
		"concat_id":  rep.LibraryID + "_reads",
		"paired_end": rep.PairedEnd,
	}
	if rep.PairedEnd {
		r.Params["concat_id2"] = rep.LibraryID + "_reads2"
	}

	r.Name = runName(r)
	r.Title = runTitle(r)
	r.SubTitle = runSubTitle(r)
	return r, nil
}

// RepTech labels the run's replicate as rep<bio>_<tech>.
func (r *Run) RepTech() string {
	return r.Replicate.RepTech()
}

// ProjectFolder places loc inside project unless it already names a
// workspace, as in /user@patricbrc.org/refs. The result ends in a slash.
func ProjectFolder(project, loc string) string {
	if project != "" && !isWorkspacePath(loc) {
		loc = path.Join(project, loc)
	}
	return folderPath(loc)
}

func isWorkspacePath(p string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return strings.HasPrefix(p, "/") && strings.Contains(first, "@")
}

// folderPath cleans p and gives it a trailing slash.
func folderPath(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return p
	}
	return p + "/"
}

func (r *Run) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.ResultFolder)
}
