// Package encoded retrieves the experiment metadata a launch is planned
// from: assay type, organism, sex, and the replicates with their libraries
// and fastq files.
package encoded

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMetadata means the portal's description of an experiment is
// inconsistent, e.g. a paired-end fastq without its mate.
var ErrMetadata = errors.New("inconsistent experiment metadata")

// AssayLongRNASeq is the assay type of experiments the long RNA-seq pipeline accepts.
const AssayLongRNASeq = "long-rna-seq"

// Experiment is the normalized metadata of one experiment.
type Experiment struct {
	Accession string `yaml:"accession" json:"accession"`

	// AssayType is the pipeline family, e.g. "long-rna-seq" or "chip-seq".
	AssayType string `yaml:"assay_type" json:"assay_type"`

	// Genome is the assembly the organism maps to, empty if unsupported.
	Genome   string `yaml:"genome" json:"genome"`
	Organism string `yaml:"organism" json:"organism"`
	Sex      string `yaml:"sex" json:"sex"`

	Replicates []Replicate `yaml:"replicates" json:"replicates"`
}

// Replicate is one biological/technical replicate of an experiment.
type Replicate struct {
	BioRep    int    `yaml:"bio_rep" json:"bio_rep"`
	TechRep   int    `yaml:"tech_rep" json:"tech_rep"`
	LibraryID string `yaml:"library_id" json:"library_id"`
	PairedEnd bool   `yaml:"paired_end" json:"paired_end"`

	// Sex is the replicate's biosample sex, empty to use the experiment's.
	Sex string `yaml:"sex,omitempty" json:"sex,omitempty"`

	// Reads1 and Reads2 list fastq file accessions for each read end.
	// Single-end replicates have no Reads2; otherwise Reads2[i] is the
	// mate of Reads1[i].
	Reads1 []string `yaml:"reads1" json:"reads1"`
	Reads2 []string `yaml:"reads2,omitempty" json:"reads2,omitempty"`
}

// RepTech labels the replicate as rep<bio>_<tech>.
func (r Replicate) RepTech() string {
	return fmt.Sprintf("rep%d_%d", r.BioRep, r.TechRep)
}

// Replicate returns the replicate with the given numbers.
func (e *Experiment) Replicate(bio, tech int) (*Replicate, bool) {
	for i := range e.Replicates {
		if e.Replicates[i].BioRep == bio && e.Replicates[i].TechRep == tech {
			return &e.Replicates[i], true
		}
	}
	return nil, false
}

// Source fetches experiment metadata by accession.
type Source interface {
	Experiment(ctx context.Context, accession string) (*Experiment, error)
}

// AssayType maps a portal assay name and library size range to the
// pipeline family that processes it.
func AssayType(assayTermName, sizeRange string) string {
	name := strings.ToLower(strings.TrimSpace(assayTermName))
	switch {
	case strings.HasSuffix(name, "rna-seq"):
		if strings.TrimSpace(sizeRange) == "<200" {
			return "small-rna-seq"
		}
		return AssayLongRNASeq
	case name == "whole-genome shotgun bisulfite sequencing":
		return "dna-me"
	case name == "":
		return ""
	}
	return strings.ReplaceAll(name, " ", "-")
}

var organismGenomes = map[string]string{
	"homo sapiens": "hg19",
	"human":        "hg19",
	"mus musculus": "mm10",
	"mouse":        "mm10",
}

// GenomeForOrganism returns the assembly an organism is mapped to, or "".
func GenomeForOrganism(organism string) string {
	return organismGenomes[strings.ToLower(strings.TrimSpace(organism))]
}

// NormalizeSex reduces a biosample sex to "female" or "male". Anything that
// is not female uses the male references.
func NormalizeSex(sex string) string {
	if strings.EqualFold(strings.TrimSpace(sex), "female") {
		return "female"
	}
	return "male"
}
