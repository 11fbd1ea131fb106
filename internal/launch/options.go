// Package launch plans and launches one replicate of the long RNA-seq
// pipeline: it resolves the run configuration from experiment metadata,
// finds reads, earlier results and reference files on the platform, decides
// which stages still have to run, and submits them.
package launch

// Defaults applied when Options leaves a field empty.
const (
	DefaultResultsLoc = "/lrna/"
	DefaultRefLoc     = "/references/"
	DefaultNThreads   = 8
	DefaultRandomSeed = 12345
)

// Options selects the replicate to process and how to process it.
type Options struct {
	// Experiment is the accession, e.g. ENCSR000AED. Required.
	Experiment string

	// BioRep and TechRep select the replicate. Biological replicate 0
	// requests combined-replicate processing, which is not supported.
	BioRep  int
	TechRep int

	// Annotation is the requested annotation label. Empty means the
	// genome's default.
	Annotation string

	// Project is the workspace folder everything is resolved against,
	// e.g. /user@patricbrc.org/home.
	Project string

	// RefLoc is the folder holding reference files. A relative folder is
	// taken inside Project.
	RefLoc string

	// ResultsLoc is the folder, inside Project, that results go under.
	ResultsLoc string

	NThreads   int
	RandomSeed int

	// Run launches the built workflow. Without it the workflow is only
	// reported.
	Run bool

	// Test builds and reports without launching or creating anything,
	// even if Run is set.
	Test bool

	// Force reruns every stage, ignoring earlier results.
	Force bool
}

func (o Options) withDefaults() Options {
	if o.ResultsLoc == "" {
		o.ResultsLoc = DefaultResultsLoc
	}
	if o.RefLoc == "" {
		o.RefLoc = DefaultRefLoc
	}
	if o.NThreads <= 0 {
		o.NThreads = DefaultNThreads
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = DefaultRandomSeed
	}
	return o
}
