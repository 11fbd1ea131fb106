package launch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/me/lrnalaunch/internal/encoded"
	"github.com/me/lrnalaunch/internal/pipeline"
	"github.com/me/lrnalaunch/pkg/bvbrc"
)

const (
	testProject = "/user@patricbrc.org/home/"
	testLibrary = "ENCLB001"
)

// fakePlatform is an in-memory workspace and app service. Started apps
// complete immediately and write the files outputsFor returns.
type fakePlatform struct {
	mu sync.Mutex

	files   map[string]bvbrc.WorkspaceObject
	clock   time.Time
	tasks   map[string]*bvbrc.Task
	started []bvbrc.StartAppInput

	// failApps lists apps whose tasks end failed.
	failApps map[string]bool

	// active lists tasks reported by EnumerateTasksFiltered and QueryTasks.
	active         []bvbrc.Task
	enumerateCalls int

	lsCalls      int
	appQueries   map[string]int
	createdPaths []string

	outputsFor func(bvbrc.StartAppInput) []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		files:      map[string]bvbrc.WorkspaceObject{},
		clock:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		tasks:      map[string]*bvbrc.Task{},
		failApps:   map[string]bool{},
		appQueries: map[string]int{},
		outputsFor: pipelineOutputs,
	}
}

func (f *fakePlatform) addFile(p string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addFileLocked(p, size)
}

func (f *fakePlatform) addFileLocked(p string, size int64) {
	f.clock = f.clock.Add(time.Minute)
	f.files[p] = bvbrc.WorkspaceObject{
		Path:         p,
		Type:         bvbrc.WorkspaceTypeUnspecified,
		Owner:        "user@patricbrc.org",
		CreationTime: f.clock,
		Size:         size,
	}
}

func (f *fakePlatform) WorkspaceLs(_ context.Context, input bvbrc.WorkspaceLsInput) (map[string][]bvbrc.WorkspaceObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lsCalls++

	out := map[string][]bvbrc.WorkspaceObject{}
	for _, p := range input.Paths {
		folder := strings.TrimSuffix(p, "/")
		var objs []bvbrc.WorkspaceObject
		for fp, obj := range f.files {
			if input.Recursive && strings.HasPrefix(fp, folder+"/") || path.Dir(fp) == folder {
				objs = append(objs, obj)
			}
		}
		out[p] = objs
	}
	return out, nil
}

func (f *fakePlatform) WorkspaceCreateFolder(_ context.Context, p string) (*bvbrc.WorkspaceObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdPaths = append(f.createdPaths, p)
	return &bvbrc.WorkspaceObject{Path: p, Type: bvbrc.WorkspaceTypeFolder}, nil
}

func (f *fakePlatform) QueryAppDescription(_ context.Context, appID string) (*bvbrc.AppDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appQueries[appID]++
	return &bvbrc.AppDescription{ID: appID, Label: appID}, nil
}

func (f *fakePlatform) StartApp(_ context.Context, input bvbrc.StartAppInput) (*bvbrc.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, input)

	task := &bvbrc.Task{
		ID:         fmt.Sprintf("task-%d", len(f.started)),
		App:        input.AppID,
		Status:     bvbrc.TaskStateQueued,
		Parameters: input.Params,
		OutputPath: input.OutputPath,
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakePlatform) WaitForTask(_ context.Context, taskID string, _ time.Duration) (*bvbrc.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if f.failApps[task.App] {
		task.Status = bvbrc.TaskStateFailed
		return task, nil
	}
	task.Status = bvbrc.TaskStateCompleted
	input := f.started[len(f.started)-1]
	for _, name := range f.outputsFor(input) {
		f.addFileLocked(path.Join(task.OutputPath, name), 1<<20)
	}
	return task, nil
}

func (f *fakePlatform) QueryTasks(_ context.Context, taskIDs []string) (map[string]bvbrc.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bvbrc.Task{}
	for _, id := range taskIDs {
		if t, ok := f.tasks[id]; ok {
			out[id] = *t
		}
		for _, t := range f.active {
			if t.ID == id {
				out[id] = t
			}
		}
	}
	return out, nil
}

func (f *fakePlatform) EnumerateTasksFiltered(_ context.Context, offset, limit int, filter bvbrc.TaskFilter) ([]bvbrc.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumerateCalls++
	var matched []bvbrc.Task
	for _, t := range f.active {
		if filter.Status == "" || t.Status == filter.Status {
			matched = append(matched, t)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	return matched[offset:min(offset+limit, len(matched))], nil
}

func (f *fakePlatform) startedApps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	apps := make([]string, len(f.started))
	for i, s := range f.started {
		apps[i] = s.AppID
	}
	return apps
}

// pipelineOutputs names the files each pipeline application writes, so
// that they match the result patterns.
func pipelineOutputs(in bvbrc.StartAppInput) []string {
	bamBase := func() string {
		bam, _ := in.Params["bam_file"].(string)
		return strings.TrimSuffix(path.Base(bam), ".bam")
	}
	switch in.AppID {
	case "concat-fastqs":
		id, _ := in.Params["concat_id"].(string)
		return []string{id + "_concat.fq.gz"}
	case "align-tophat-se", "align-tophat-pe":
		return []string{testLibrary + "_tophat.bam"}
	case "align-star-se", "align-star-pe":
		return []string{testLibrary + "_star_genome.bam", testLibrary + "_star_anno.bam", testLibrary + "_Log.final.out"}
	case "bam-to-bigwig-stranded":
		b := bamBase()
		return []string{b + "_minusAll.bw", b + "_minusUniq.bw", b + "_plusAll.bw", b + "_plusUniq.bw"}
	case "bam-to-bigwig-unstranded":
		b := bamBase()
		return []string{b + "_all.bw", b + "_uniq.bw"}
	case "quant-rsem":
		return []string{testLibrary + "_rsem.isoforms.results", testLibrary + "_rsem.genes.results"}
	}
	return nil
}

func testExperiment(genome, sex string, paired bool) *encoded.Experiment {
	rep := encoded.Replicate{
		BioRep:    1,
		TechRep:   1,
		LibraryID: testLibrary,
		PairedEnd: paired,
		Reads1:    []string{"ENCFF001AAA", "ENCFF001BBB"},
	}
	if paired {
		rep.Reads2 = []string{"ENCFF002AAA", "ENCFF002BBB"}
	}
	organism := "Homo sapiens"
	if genome == pipeline.GenomeMm10 {
		organism = "Mus musculus"
	}
	return &encoded.Experiment{
		Accession:  "ENCSR000AED",
		AssayType:  encoded.AssayLongRNASeq,
		Genome:     genome,
		Organism:   organism,
		Sex:        sex,
		Replicates: []encoded.Replicate{rep},
	}
}

func testOptions() Options {
	return Options{
		Experiment: "ENCSR000AED",
		BioRep:     1,
		TechRep:    1,
		Project:    testProject,
	}
}

// seedInputs places the experiment's fastqs and the references of
// genome/sex/anno in the fake workspace.
func seedInputs(t *testing.T, f *fakePlatform, exp *encoded.Experiment, anno string) {
	t.Helper()
	for _, rep := range exp.Replicates {
		for _, acc := range append(append([]string{}, rep.Reads1...), rep.Reads2...) {
			f.addFile(testProject+"fastqs/"+acc+".fastq.gz", 2<<30)
		}
	}
	refs, err := pipeline.References(exp.Genome, encoded.NormalizeSex(exp.Sex), anno)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	for _, name := range refs {
		f.addFile(testProject+"references/"+name, 4<<30)
	}
}

// seedPriors places earlier results for the given tokens in folder.
func seedPriors(f *fakePlatform, folder string, tokens ...string) {
	for _, token := range tokens {
		glob, _ := pipeline.ResultGlob(token)
		f.addFile(path.Join(folder, strings.Replace(glob, "*", testLibrary, 1)), 1<<20)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticSource struct {
	exp *encoded.Experiment
	err error
}

func (s staticSource) Experiment(context.Context, string) (*encoded.Experiment, error) {
	return s.exp, s.err
}
