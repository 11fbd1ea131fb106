package launch

import (
	"strings"

	"github.com/me/lrnalaunch/internal/pipeline"
)

// runName builds the short run name, e.g. lrna_hg19XXPE_ENCSR000AED_rep1_1
// or lrna_mm10M4XYSE_ENCSR000AEE_rep2_1 for a non-default genome.
func runName(r *Run) string {
	var b strings.Builder
	b.WriteString("lrna_")
	b.WriteString(r.Genome)
	if r.Genome != pipeline.DefaultGenome {
		b.WriteString(r.Annotation)
	}
	if r.Sex == pipeline.SexFemale {
		b.WriteString("XX")
	} else {
		b.WriteString("XY")
	}
	if r.PairedEnd {
		b.WriteString("PE")
	} else {
		b.WriteString("SE")
	}
	b.WriteString("_" + r.Experiment + "_" + r.RepTech())
	return b.String()
}

func runTitle(r *Run) string {
	layout := "single-end"
	if r.PairedEnd {
		layout = "paired-end"
	}
	return "long RNA-seq " + layout + " " + r.Experiment + " - " + r.RepTech() +
		" (library '" + r.Replicate.LibraryID + "')"
}

func runSubTitle(r *Run) string {
	return r.Genome + ", " + r.Sex + " and annotation '" + r.Annotation + "'."
}
