package encoded

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const portalFixture = `{
  "accession": "ENCSR000AED",
  "assay_term_name": "RNA-seq",
  "replicates": [
    {"biological_replicate_number": 1, "technical_replicate_number": 1,
     "library": {"accession": "ENCLB037ZZZ", "size_range": ">200",
       "biosample": {"sex": "female", "organism": {"scientific_name": "Homo sapiens"}}}},
    {"biological_replicate_number": 2, "technical_replicate_number": 1,
     "library": {"accession": "ENCLB038ZZZ", "size_range": ">200",
       "biosample": {"sex": "male", "organism": {"scientific_name": "Homo sapiens"}}}}
  ],
  "files": [
    {"accession": "ENCFF002", "file_format": "fastq", "run_type": "paired-ended", "paired_end": "1", "status": "released",
     "paired_with": "/files/ENCFF003/",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF001", "file_format": "fastq", "run_type": "paired-ended", "paired_end": "1", "status": "released",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF003", "file_format": "fastq", "run_type": "paired-ended", "paired_end": "2", "status": "released",
     "paired_with": "/files/ENCFF002/",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF004", "file_format": "fastq", "run_type": "paired-ended", "paired_end": "2", "status": "released",
     "paired_with": "/files/ENCFF001/",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF009", "file_format": "fastq", "run_type": "paired-ended", "paired_end": "2", "status": "revoked",
     "paired_with": "/files/ENCFF001/",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF010", "file_format": "bam", "status": "released",
     "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}},
    {"accession": "ENCFF020", "file_format": "fastq", "run_type": "single-ended", "status": "released",
     "replicate": {"biological_replicate_number": 2, "technical_replicate_number": 1}}
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPortalSource_Experiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/experiments/ENCSR000AED/" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format query = %q", r.URL.Query().Get("format"))
		}
		w.Write([]byte(portalFixture))
	}))
	defer srv.Close()

	exp, err := NewPortalSource(srv.URL+"/", testLogger()).Experiment(context.Background(), "ENCSR000AED")
	if err != nil {
		t.Fatalf("Experiment: %v", err)
	}
	if exp.AssayType != AssayLongRNASeq {
		t.Errorf("AssayType = %q", exp.AssayType)
	}
	if exp.Genome != "hg19" || exp.Sex != "female" || exp.Organism != "Homo sapiens" {
		t.Errorf("genome/sex/organism = %s/%s/%s", exp.Genome, exp.Sex, exp.Organism)
	}

	rep, ok := exp.Replicate(1, 1)
	if !ok {
		t.Fatal("replicate 1_1 missing")
	}
	if !rep.PairedEnd || rep.LibraryID != "ENCLB037ZZZ" {
		t.Errorf("rep = %+v", rep)
	}
	if !slices.Equal(rep.Reads1, []string{"ENCFF001", "ENCFF002"}) {
		t.Errorf("Reads1 = %v", rep.Reads1)
	}
	if !slices.Equal(rep.Reads2, []string{"ENCFF004", "ENCFF003"}) {
		t.Errorf("Reads2 = %v, want mates of Reads1 in order without the revoked file", rep.Reads2)
	}
	if rep.Sex != "female" {
		t.Errorf("rep1 Sex = %q", rep.Sex)
	}

	rep2, ok := exp.Replicate(2, 1)
	if !ok {
		t.Fatal("replicate 2_1 missing")
	}
	if rep2.PairedEnd || len(rep2.Reads2) != 0 || rep2.RepTech() != "rep2_1" {
		t.Errorf("rep2 = %+v", rep2)
	}
	if rep2.Sex != "male" {
		t.Errorf("rep2 Sex = %q, want its own biosample's sex", rep2.Sex)
	}
	if _, ok := exp.Replicate(3, 1); ok {
		t.Error("replicate 3_1 should not exist")
	}
}

func serveExperiment(t *testing.T, doc string) *PortalSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return NewPortalSource(srv.URL, testLogger())
}

func pairedFixture(files string) string {
	return `{"accession": "ENCSR200PEP", "assay_term_name": "RNA-seq",
  "replicates": [{"biological_replicate_number": 1, "technical_replicate_number": 1,
    "library": {"accession": "ENCLB200AAA", "size_range": ">200",
      "biosample": {"sex": "female", "organism": {"scientific_name": "Homo sapiens"}}}}],
  "files": [` + files + `]}`
}

func pairedFile(acc, end, mate string) string {
	return `{"accession": "` + acc + `", "file_format": "fastq", "run_type": "paired-ended",
  "paired_end": "` + end + `", "paired_with": "` + mate + `", "status": "released",
  "replicate": {"biological_replicate_number": 1, "technical_replicate_number": 1}}`
}

func TestPortalSource_PairsMates(t *testing.T) {
	files := strings.Join([]string{
		pairedFile("ENCFF200", "1", "/files/ENCFF050/"),
		pairedFile("ENCFF900", "2", "/files/ENCFF100/"),
		pairedFile("ENCFF100", "1", ""),
		pairedFile("ENCFF050", "2", "ENCFF200"),
	}, ",")

	exp, err := serveExperiment(t, pairedFixture(files)).Experiment(context.Background(), "ENCSR200PEP")
	if err != nil {
		t.Fatalf("Experiment: %v", err)
	}
	rep, _ := exp.Replicate(1, 1)
	if !slices.Equal(rep.Reads1, []string{"ENCFF100", "ENCFF200"}) {
		t.Errorf("Reads1 = %v", rep.Reads1)
	}
	if !slices.Equal(rep.Reads2, []string{"ENCFF900", "ENCFF050"}) {
		t.Errorf("Reads2 = %v, want [ENCFF900 ENCFF050] to follow Reads1 mates", rep.Reads2)
	}
}

func TestPortalSource_UnpairedRead(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{
			"read 2 without mate",
			[]string{pairedFile("ENCFF100", "1", "/files/ENCFF900/"), pairedFile("ENCFF900", "2", ""), pairedFile("ENCFF901", "2", "")},
			"ENCFF901",
		},
		{
			"read 1 without mate",
			[]string{pairedFile("ENCFF100", "1", "/files/ENCFF900/"), pairedFile("ENCFF101", "1", ""), pairedFile("ENCFF900", "2", "")},
			"ENCFF101",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serveExperiment(t, pairedFixture(strings.Join(tt.files, ","))).Experiment(context.Background(), "ENCSR200PEP")
			if !errors.Is(err, ErrMetadata) {
				t.Fatalf("err = %v, want ErrMetadata", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to name %s", err, tt.want)
			}
		})
	}
}

func TestPortalSource_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewPortalSource(srv.URL, testLogger()).Experiment(context.Background(), "ENCSR999ZZZ")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestFileSource_Experiment(t *testing.T) {
	doc := `accession: ENCSR100MMM
assay_type: long-rna-seq
organism: Mus musculus
sex: unknown
replicates:
  - bio_rep: 1
    tech_rep: 2
    library_id: ENCLB100AAA
    paired_end: false
    reads1: [ENCFF100AAA]
`
	path := filepath.Join(t.TempDir(), "exp.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	exp, err := FileSource{Path: path}.Experiment(context.Background(), "ENCSR100MMM")
	if err != nil {
		t.Fatalf("Experiment: %v", err)
	}
	if exp.Genome != "mm10" {
		t.Errorf("Genome = %q, want mm10 from organism", exp.Genome)
	}
	if exp.Sex != "male" {
		t.Errorf("Sex = %q, want male for unknown", exp.Sex)
	}
	rep, ok := exp.Replicate(1, 2)
	if !ok || rep.LibraryID != "ENCLB100AAA" || len(rep.Reads1) != 1 {
		t.Errorf("rep = %+v", rep)
	}

	if _, err := (FileSource{Path: path}).Experiment(context.Background(), "ENCSR000AAA"); err == nil {
		t.Error("expected accession mismatch error")
	}
}

func TestAssayType(t *testing.T) {
	tests := []struct {
		name, size, want string
	}{
		{"RNA-seq", ">200", "long-rna-seq"},
		{"RNA-seq", "", "long-rna-seq"},
		{"RNA-seq", "<200", "small-rna-seq"},
		{"shRNA knockdown followed by RNA-seq", ">200", "long-rna-seq"},
		{"ChIP-seq", "", "chip-seq"},
		{"DNase-seq", "", "dnase-seq"},
		{"whole-genome shotgun bisulfite sequencing", "", "dna-me"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := AssayType(tt.name, tt.size); got != tt.want {
			t.Errorf("AssayType(%q, %q) = %q, want %q", tt.name, tt.size, got, tt.want)
		}
	}
}

func TestGenomeForOrganism(t *testing.T) {
	if GenomeForOrganism("Homo sapiens") != "hg19" || GenomeForOrganism("mouse") != "mm10" {
		t.Error("unexpected genome mapping")
	}
	if GenomeForOrganism("Drosophila melanogaster") != "" {
		t.Error("fly should not map to a supported genome")
	}
}
