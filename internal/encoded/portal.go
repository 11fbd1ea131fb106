package encoded

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
)

// DefaultPortalURL is the public ENCODE portal.
const DefaultPortalURL = "https://www.encodeproject.org"

// PortalSource reads experiments from the ENCODE portal REST interface.
type PortalSource struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewPortalSource creates a portal source. An empty baseURL uses DefaultPortalURL.
func NewPortalSource(baseURL string, logger *slog.Logger) *PortalSource {
	if baseURL == "" {
		baseURL = DefaultPortalURL
	}
	return &PortalSource{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger.With("component", "encoded-portal"),
	}
}

type portalExperiment struct {
	Accession     string            `json:"accession"`
	AssayTermName string            `json:"assay_term_name"`
	Replicates    []portalReplicate `json:"replicates"`
	Files         []portalFile      `json:"files"`
}

type portalReplicate struct {
	BioRep  int `json:"biological_replicate_number"`
	TechRep int `json:"technical_replicate_number"`
	Library struct {
		Accession string `json:"accession"`
		SizeRange string `json:"size_range"`
		Biosample struct {
			Sex      string `json:"sex"`
			Organism struct {
				ScientificName string `json:"scientific_name"`
			} `json:"organism"`
		} `json:"biosample"`
	} `json:"library"`
}

type portalFile struct {
	Accession  string `json:"accession"`
	FileFormat string `json:"file_format"`
	RunType    string `json:"run_type"`
	PairedEnd  string `json:"paired_end"`
	PairedWith string `json:"paired_with"`
	Status     string `json:"status"`
	Replicate  *struct {
		BioRep  int `json:"biological_replicate_number"`
		TechRep int `json:"technical_replicate_number"`
	} `json:"replicate"`
}

// Experiment fetches and normalizes one experiment.
func (p *PortalSource) Experiment(ctx context.Context, accession string) (*Experiment, error) {
	u := fmt.Sprintf("%s/experiments/%s/?format=json&frame=embedded", p.BaseURL, url.PathEscape(accession))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	p.Logger.Debug("fetching experiment", "url", u)
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch experiment %s: %w", accession, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read experiment %s: %w", accession, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("experiment %s not found on %s", accession, p.BaseURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch experiment %s: HTTP %d", accession, resp.StatusCode)
	}

	var pe portalExperiment
	if err := json.Unmarshal(body, &pe); err != nil {
		return nil, fmt.Errorf("parse experiment %s: %w", accession, err)
	}
	return pe.normalize(p.Logger)
}

func (pe *portalExperiment) normalize(log *slog.Logger) (*Experiment, error) {
	exp := &Experiment{Accession: pe.Accession}

	type repKey struct{ bio, tech int }
	index := map[repKey]int{}
	var sizeRange string
	for _, r := range pe.Replicates {
		lib := r.Library
		sex := NormalizeSex(lib.Biosample.Sex)
		organism := lib.Biosample.Organism.ScientificName
		if exp.Organism == "" {
			exp.Organism = organism
			exp.Sex = sex
			sizeRange = lib.SizeRange
		} else if organism != exp.Organism || sex != exp.Sex || lib.SizeRange != sizeRange {
			log.Warn("replicates disagree", "experiment", pe.Accession,
				"replicate", fmt.Sprintf("rep%d_%d", r.BioRep, r.TechRep),
				"organism", organism, "sex", sex, "size_range", lib.SizeRange)
		}
		index[repKey{r.BioRep, r.TechRep}] = len(exp.Replicates)
		exp.Replicates = append(exp.Replicates, Replicate{
			BioRep:    r.BioRep,
			TechRep:   r.TechRep,
			LibraryID: lib.Accession,
			Sex:       sex,
		})
	}
	if exp.Sex == "" {
		exp.Sex = NormalizeSex("")
	}
	exp.AssayType = AssayType(pe.AssayTermName, sizeRange)
	exp.Genome = GenomeForOrganism(exp.Organism)

	// mates links read 1 and read 2 files both ways, from either side's
	// paired_with.
	mates := map[string]string{}
	for _, f := range pe.Files {
		if f.FileFormat != "fastq" || f.Replicate == nil || !usableStatus(f.Status) {
			continue
		}
		i, ok := index[repKey{f.Replicate.BioRep, f.Replicate.TechRep}]
		if !ok {
			continue
		}
		rep := &exp.Replicates[i]
		if f.RunType == "paired-ended" {
			rep.PairedEnd = true
		}
		if mate := fileAccession(f.PairedWith); mate != "" {
			mates[f.Accession] = mate
			if _, ok := mates[mate]; !ok {
				mates[mate] = f.Accession
			}
		}
		if f.PairedEnd == "2" {
			rep.Reads2 = append(rep.Reads2, f.Accession)
		} else {
			rep.Reads1 = append(rep.Reads1, f.Accession)
		}
	}
	for i := range exp.Replicates {
		rep := &exp.Replicates[i]
		sort.Strings(rep.Reads1)
		if !rep.PairedEnd || len(rep.Reads2) == 0 {
			sort.Strings(rep.Reads2)
			continue
		}
		reads2, err := pairReads(rep, mates)
		if err != nil {
			return nil, fmt.Errorf("%w: experiment %s %s: %w", ErrMetadata, pe.Accession, rep.RepTech(), err)
		}
		rep.Reads2 = reads2
	}
	return exp, nil
}

// pairReads orders the read 2 files of rep so that the i-th is the mate of
// the i-th read 1 file.
func pairReads(rep *Replicate, mates map[string]string) ([]string, error) {
	unpaired := make(map[string]bool, len(rep.Reads2))
	for _, acc := range rep.Reads2 {
		unpaired[acc] = true
	}
	reads2 := make([]string, 0, len(rep.Reads1))
	for _, r1 := range rep.Reads1 {
		r2 := mates[r1]
		if !unpaired[r2] {
			// The read 1 side may name a file that is no longer usable.
			r2 = ""
			for _, acc := range rep.Reads2 {
				if unpaired[acc] && mates[acc] == r1 {
					r2 = acc
					break
				}
			}
		}
		if r2 == "" {
			return nil, fmt.Errorf("read 1 file %s has no read 2 mate", r1)
		}
		delete(unpaired, r2)
		reads2 = append(reads2, r2)
	}
	if len(unpaired) > 0 {
		left := make([]string, 0, len(unpaired))
		for acc := range unpaired {
			left = append(left, acc)
		}
		sort.Strings(left)
		return nil, fmt.Errorf("read 2 file %s has no read 1 mate", strings.Join(left, ", "))
	}
	return reads2, nil
}

// fileAccession takes the accession out of a file reference, which the
// portal gives either bare or as /files/<accession>/.
func fileAccession(ref string) string {
	ref = strings.Trim(ref, "/")
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}

func usableStatus(status string) bool {
	switch status {
	case "revoked", "deleted", "replaced", "archived":
		return false
	}
	return true
}
