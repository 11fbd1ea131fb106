package encoded

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads experiment metadata from a local YAML or JSON document,
// for offline planning and for experiments not yet on the portal.
type FileSource struct {
	Path string
}

// Experiment loads the document and checks it describes accession.
func (f FileSource) Experiment(_ context.Context, accession string) (*Experiment, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", f.Path, err)
	}
	if exp.Accession != accession {
		return nil, fmt.Errorf("metadata %s describes %q, not %q", f.Path, exp.Accession, accession)
	}
	if exp.Genome == "" {
		exp.Genome = GenomeForOrganism(exp.Organism)
	}
	exp.Sex = NormalizeSex(exp.Sex)
	return &exp, nil
}
