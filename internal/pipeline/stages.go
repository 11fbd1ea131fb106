// Package pipeline holds the fixed definition of the long RNA-seq pipeline:
// the ordered stages for each read layout, the file token wiring between
// them, the filename patterns of their results, and the genome reference
// files they consume.
//
// Stages are connected by tokens. Each stage maps the tokens it consumes and
// produces to the argument names of its remote application, so two stages
// that run the same application can still be told apart. A stage depends on
// an earlier stage when one of its input tokens is a result token of that
// stage.
package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Stage is one remote application invocation in the pipeline.
type Stage struct {
	Name string `yaml:"name"`
	App  string `yaml:"app"`

	// Params maps run parameter names to application argument names.
	Params map[string]string `yaml:"params,omitempty"`

	// Inputs maps input file tokens to application argument names.
	Inputs map[string]string `yaml:"inputs"`

	// Results maps result file tokens to application output names.
	Results map[string]string `yaml:"results"`
}

// InputTokens returns the stage's input tokens in sorted order.
func (s Stage) InputTokens() []string {
	return sortedKeys(s.Inputs)
}

// ResultTokens returns the stage's result tokens in sorted order.
func (s Stage) ResultTokens() []string {
	return sortedKeys(s.Results)
}

func (s Stage) clone() Stage {
	s.Params = maps.Clone(s.Params)
	s.Inputs = maps.Clone(s.Inputs)
	s.Results = maps.Clone(s.Results)
	return s
}

// Tokens that are supplied from outside the pipeline rather than by a stage.
const (
	TokenReads1Set = "reads1_set"
	TokenReads2Set = "reads2_set"
)

var singleEndOrder = []string{
	"concatR1", "align-tophat-se", "topBwSe", "align-star-se", "starBwSe", "quant-rsem",
}

var pairedEndOrder = []string{
	"concatR1", "concatR2", "align-tophat-pe", "topBwPe", "align-star-pe", "starBwPe", "quant-rsem",
}

var stages = map[string]Stage{
	"concatR1": {
		App:     "concat-fastqs",
		Params:  map[string]string{"concat_id": "concat_id"},
		Inputs:  map[string]string{TokenReads1Set: "reads_set"},
		Results: map[string]string{"reads1": "reads"},
	},
	"concatR2": {
		App:     "concat-fastqs",
		Params:  map[string]string{"concat_id2": "concat_id"},
		Inputs:  map[string]string{TokenReads2Set: "reads_set"},
		Results: map[string]string{"reads2": "reads"},
	},
	"align-tophat-se": {
		App:    "align-tophat-se",
		Params: map[string]string{"library_id": "library_id"},
		Inputs: map[string]string{
			"reads1":       "reads",
			"tophat_index": "tophat_index",
		},
		Results: map[string]string{"tophat_bam": "tophat_bam"},
	},
	"align-tophat-pe": {
		App:    "align-tophat-pe",
		Params: map[string]string{"library_id": "library_id"},
		Inputs: map[string]string{
			"reads1":       "reads_1",
			"reads2":       "reads_2",
			"tophat_index": "tophat_index",
		},
		Results: map[string]string{"tophat_bam": "tophat_bam"},
	},
	"topBwSe": {
		App: "bam-to-bigwig-unstranded",
		Inputs: map[string]string{
			"tophat_bam":  "bam_file",
			"chrom_sizes": "chrom_sizes",
		},
		Results: map[string]string{
			"tophat_all_bw":  "all_bw",
			"tophat_uniq_bw": "uniq_bw",
		},
	},
	"topBwPe": {
		App: "bam-to-bigwig-stranded",
		Inputs: map[string]string{
			"tophat_bam":  "bam_file",
			"chrom_sizes": "chrom_sizes",
		},
		Results: map[string]string{
			"tophat_minus_all_bw":  "minus_all_bw",
			"tophat_minus_uniq_bw": "minus_uniq_bw",
			"tophat_plus_all_bw":   "plus_all_bw",
			"tophat_plus_uniq_bw":  "plus_uniq_bw",
		},
	},
	"align-star-se": {
		App:    "align-star-se",
		Params: map[string]string{"library_id": "library_id"},
		Inputs: map[string]string{
			"reads1":     "reads",
			"star_index": "star_index",
		},
		Results: map[string]string{
			"star_genome_bam": "star_genome_bam",
			"star_anno_bam":   "star_anno_bam",
			"star_log":        "star_log",
		},
	},
	"align-star-pe": {
		App:    "align-star-pe",
		Params: map[string]string{"library_id": "library_id"},
		Inputs: map[string]string{
			"reads1":     "reads_1",
			"reads2":     "reads_2",
			"star_index": "star_index",
		},
		Results: map[string]string{
			"star_genome_bam": "star_genome_bam",
			"star_anno_bam":   "star_anno_bam",
			"star_log":        "star_log",
		},
	},
	"starBwSe": {
		App: "bam-to-bigwig-unstranded",
		Inputs: map[string]string{
			"star_genome_bam": "bam_file",
			"chrom_sizes":     "chrom_sizes",
		},
		Results: map[string]string{
			"star_all_bw":  "all_bw",
			"star_uniq_bw": "uniq_bw",
		},
	},
	"starBwPe": {
		App: "bam-to-bigwig-stranded",
		Inputs: map[string]string{
			"star_genome_bam": "bam_file",
			"chrom_sizes":     "chrom_sizes",
		},
		Results: map[string]string{
			"star_minus_all_bw":  "minus_all_bw",
			"star_minus_uniq_bw": "minus_uniq_bw",
			"star_plus_all_bw":   "plus_all_bw",
			"star_plus_uniq_bw":  "plus_uniq_bw",
		},
	},
	"quant-rsem": {
		App:    "quant-rsem",
		Params: map[string]string{"paired_end": "paired_end"},
		Inputs: map[string]string{
			"star_anno_bam": "star_anno_bam",
			"rsem_index":    "rsem_index",
		},
		Results: map[string]string{
			"rsem_iso_results":  "rsem_iso_results",
			"rsem_gene_results": "rsem_gene_results",
		},
	},
}

// resultGlobs locate results of earlier runs inside a results folder.
var resultGlobs = map[string]string{
	"reads1":               "*_reads_concat.fq.gz",
	"reads2":               "*_reads2_concat.fq.gz",
	"tophat_bam":           "*_tophat.bam",
	"tophat_minus_all_bw":  "*_tophat_minusAll.bw",
	"tophat_minus_uniq_bw": "*_tophat_minusUniq.bw",
	"tophat_plus_all_bw":   "*_tophat_plusAll.bw",
	"tophat_plus_uniq_bw":  "*_tophat_plusUniq.bw",
	"tophat_all_bw":        "*_tophat_all.bw",
	"tophat_uniq_bw":       "*_tophat_uniq.bw",
	"star_genome_bam":      "*_star_genome.bam",
	"star_anno_bam":        "*_star_anno.bam",
	"star_log":             "*_Log.final.out",
	"star_minus_all_bw":    "*_star_genome_minusAll.bw",
	"star_minus_uniq_bw":   "*_star_genome_minusUniq.bw",
	"star_plus_all_bw":     "*_star_genome_plusAll.bw",
	"star_plus_uniq_bw":    "*_star_genome_plusUniq.bw",
	"star_all_bw":          "*_star_genome_all.bw",
	"star_uniq_bw":         "*_star_genome_uniq.bw",
	"rsem_iso_results":     "*_rsem.isoforms.results",
	"rsem_gene_results":    "*_rsem.genes.results",
}

// StageOrder returns the ordered stage names for a read layout.
func StageOrder(pairedEnd bool) []string {
	if pairedEnd {
		return slices.Clone(pairedEndOrder)
	}
	return slices.Clone(singleEndOrder)
}

// LookupStage returns a copy of the named stage.
func LookupStage(name string) (Stage, bool) {
	s, ok := stages[name]
	if !ok {
		return Stage{}, false
	}
	s = s.clone()
	s.Name = name
	return s, true
}

// Stages returns copies of the stages of a layout, in run order.
func Stages(pairedEnd bool) []Stage {
	order := StageOrder(pairedEnd)
	out := make([]Stage, 0, len(order))
	for _, name := range order {
		s, _ := LookupStage(name)
		out = append(out, s)
	}
	return out
}

// ResultGlob returns the filename pattern of a result token.
func ResultGlob(token string) (string, bool) {
	g, ok := resultGlobs[token]
	return g, ok
}

// IsExternalToken reports whether a token is supplied from outside the
// pipeline: a reads set or a reference file.
func IsExternalToken(token string) bool {
	if token == TokenReads1Set || token == TokenReads2Set {
		return true
	}
	return slices.Contains(ReferenceKinds(), ReferenceKind(token))
}

// Validate checks the internal consistency of the stage tables for both
// layouts: every stage exists, every input is external or produced by an
// earlier stage, no result is produced twice, and every result has a glob.
func Validate() error {
	for _, paired := range []bool{false, true} {
		produced := map[string]string{}
		for _, name := range StageOrder(paired) {
			s, ok := LookupStage(name)
			if !ok {
				return fmt.Errorf("stage %q is not defined", name)
			}
			for _, tok := range s.InputTokens() {
				if IsExternalToken(tok) {
					continue
				}
				if _, ok := produced[tok]; !ok {
					return fmt.Errorf("stage %q input %q is not produced by an earlier stage", name, tok)
				}
			}
			for _, tok := range s.ResultTokens() {
				if prev, dup := produced[tok]; dup {
					return fmt.Errorf("result %q produced by both %q and %q", tok, prev, name)
				}
				if _, ok := resultGlobs[tok]; !ok {
					return fmt.Errorf("stage %q result %q has no filename pattern", name, tok)
				}
				produced[tok] = name
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
