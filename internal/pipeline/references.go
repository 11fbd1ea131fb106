package pipeline

import (
	"fmt"
	"slices"
)

// Supported genome assemblies.
const (
	GenomeHg19 = "hg19"
	GenomeMm10 = "mm10"

	// DefaultGenome is the assembly long RNA-seq experiments map to unless
	// the organism says otherwise.
	DefaultGenome = GenomeHg19
)

// Sexes used to key sex-specific references.
const (
	SexFemale = "female"
	SexMale   = "male"
)

var annotationDefaults = map[string]string{
	GenomeHg19: "v19",
	GenomeMm10: "M4",
}

var annotationsAllowed = map[string][]string{
	GenomeHg19: {"v19"},
	GenomeMm10: {"M4", "M2", "M3"},
}

// DefaultAnnotation is the default annotation of the default genome.
var DefaultAnnotation = annotationDefaults[DefaultGenome]

// Genomes returns the supported genome assemblies.
func Genomes() []string {
	return []string{GenomeHg19, GenomeMm10}
}

// GenomeSupported reports whether genome is one of Genomes.
func GenomeSupported(genome string) bool {
	_, ok := annotationDefaults[genome]
	return ok
}

// GenomeDefaultAnnotation returns the default annotation of a genome.
func GenomeDefaultAnnotation(genome string) (string, bool) {
	a, ok := annotationDefaults[genome]
	return a, ok
}

// Annotations returns the annotations allowed for a genome, default first.
func Annotations(genome string) []string {
	return slices.Clone(annotationsAllowed[genome])
}

// AllAnnotations returns every annotation label accepted on the command line.
func AllAnnotations() []string {
	var all []string
	for _, g := range Genomes() {
		for _, a := range annotationsAllowed[g] {
			if !slices.Contains(all, a) {
				all = append(all, a)
			}
		}
	}
	return all
}

// AnnotationAllowed reports whether anno may be used with genome.
func AnnotationAllowed(genome, anno string) bool {
	return slices.Contains(annotationsAllowed[genome], anno)
}

// ReferenceKind names a reference file consumed by the pipeline. Each kind
// is also the input token stages use to consume it.
type ReferenceKind string

const (
	RefTophatIndex ReferenceKind = "tophat_index"
	RefStarIndex   ReferenceKind = "star_index"
	RefRsemIndex   ReferenceKind = "rsem_index"
	RefChromSizes  ReferenceKind = "chrom_sizes"
)

// ReferenceKinds returns every reference kind in resolution order.
func ReferenceKinds() []ReferenceKind {
	return []ReferenceKind{RefTophatIndex, RefStarIndex, RefRsemIndex, RefChromSizes}
}

// Label is a human-readable name of the reference kind.
func (k ReferenceKind) Label() string {
	switch k {
	case RefTophatIndex:
		return "TopHat index"
	case RefStarIndex:
		return "STAR index"
	case RefRsemIndex:
		return "RSEM index"
	case RefChromSizes:
		return "Chrom Sizes"
	}
	return string(k)
}

// Aligner indexes are built per genome, sex and annotation.
var alignerIndexes = map[ReferenceKind]map[string]map[string]map[string]string{
	RefTophatIndex: {
		GenomeHg19: {
			SexFemale: {"v19": "hg19_female_v19_ERCC_tophatIndex.tgz"},
			SexMale:   {"v19": "hg19_male_v19_ERCC_tophatIndex.tgz"},
		},
		GenomeMm10: {
			SexFemale: {
				"M2": "mm10_female_M2_ERCC_tophatIndex.tgz",
				"M3": "mm10_female_M3_ERCC_tophatIndex.tgz",
				"M4": "mm10_female_M4_ERCC_tophatIndex.tgz",
			},
			SexMale: {
				"M2": "mm10_male_M2_ERCC_tophatIndex.tgz",
				"M3": "mm10_male_M3_ERCC_tophatIndex.tgz",
				"M4": "mm10_male_M4_ERCC_tophatIndex.tgz",
			},
		},
	},
	RefStarIndex: {
		GenomeHg19: {
			SexFemale: {"v19": "hg19_female_v19_ERCC_starIndex.tgz"},
			SexMale:   {"v19": "hg19_male_v19_ERCC_starIndex.tgz"},
		},
		GenomeMm10: {
			SexFemale: {
				"M2": "mm10_female_M2_ERCC_starIndex.tgz",
				"M3": "mm10_female_M3_ERCC_starIndex.tgz",
				"M4": "mm10_female_M4_ERCC_starIndex.tgz",
			},
			SexMale: {
				"M2": "mm10_male_M2_ERCC_starIndex.tgz",
				"M3": "mm10_male_M3_ERCC_starIndex.tgz",
				"M4": "mm10_male_M4_ERCC_starIndex.tgz",
			},
		},
	},
}

// The RSEM index is built from the male genome and serves both sexes.
var rsemIndexes = map[string]map[string]string{
	GenomeHg19: {"v19": "hg19_male_v19_ERCC_rsemIndex.tgz"},
	GenomeMm10: {
		"M2": "mm10_male_M2_ERCC_rsemIndex.tgz",
		"M3": "mm10_male_M3_ERCC_rsemIndex.tgz",
		"M4": "mm10_male_M4_ERCC_rsemIndex.tgz",
	},
}

// Chromosome sizes do not depend on the annotation.
var chromSizes = map[string]map[string]string{
	GenomeHg19: {SexFemale: "female.hg19.chrom.sizes", SexMale: "male.hg19.chrom.sizes"},
	GenomeMm10: {SexFemale: "female.mm10.chrom.sizes", SexMale: "male.mm10.chrom.sizes"},
}

// ReferenceSet maps each reference kind to its file name.
type ReferenceSet map[ReferenceKind]string

// References returns the reference file names for a genome, sex and
// annotation. Every kind in ReferenceKinds must resolve.
func References(genome, sex, anno string) (ReferenceSet, error) {
	if !GenomeSupported(genome) {
		return nil, fmt.Errorf("genome %q is not supported", genome)
	}
	if sex != SexFemale && sex != SexMale {
		return nil, fmt.Errorf("no references for sex %q", sex)
	}
	if !AnnotationAllowed(genome, anno) {
		return nil, fmt.Errorf("%s has no %s annotation", genome, anno)
	}

	set := ReferenceSet{}
	for _, kind := range []ReferenceKind{RefTophatIndex, RefStarIndex} {
		if name := alignerIndexes[kind][genome][sex][anno]; name != "" {
			set[kind] = name
		}
	}
	if name := rsemIndexes[genome][anno]; name != "" {
		set[RefRsemIndex] = name
	}
	if name := chromSizes[genome][sex]; name != "" {
		set[RefChromSizes] = name
	}

	for _, kind := range ReferenceKinds() {
		if _, ok := set[kind]; !ok {
			return nil, fmt.Errorf("no %s for %s %s %s", kind.Label(), genome, sex, anno)
		}
	}
	return set, nil
}
