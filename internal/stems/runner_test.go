package stems

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/UtsahaJoshi/stemgen/internal/config"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
	"github.com/UtsahaJoshi/stemgen/internal/model"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []model.GenerateRequest
	out   []int32
}

func (g *fakeGenerator) Generate(_ context.Context, req model.GenerateRequest) ([]int32, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return g.out, nil
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(_ context.Context, codes [][]int32) ([]int16, int, error) {
	return make([]int16, 16), 32000, nil
}

func testPipeline() config.Pipeline {
	return config.Pipeline{
		VocabSize:     1024,
		ContextLength: 20,
		FrameRate:     1,
		Harmonics:     2,
		PadValue:      0,
		Codebooks:     2,
		ClipSecs:      10,
		SampleRate:    32000,
		FusionMode:    "concat-replace",
	}
}

func testRegistry(ckptDir string) *config.Registry {
	return &config.Registry{
		Conditioning: "vocals",
		Classes: []config.Class{
			{Name: "vocals", DatasetKey: "vocals"},
			{Name: "bass", DatasetKey: "bass", CheckpointDir: ckptDir},
		},
	}
}

func seedStore(t *testing.T, ids ...string) *dataset.Store {
	t.Helper()
	s, err := dataset.OpenInMemory(dataset.Meta{
		VocabSize: 1024, ContextLength: 20, FrameRate: 1, Harmonics: 2,
		PadValue: 0, Codebooks: 2, FusionMode: "concat-replace",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	for _, id := range ids {
		grid := func(fill int32) dataset.Grid {
			codes := make([]int32, 10)
			for i := range codes {
				codes[i] = fill
			}
			return dataset.Grid{Codebooks: 2, Frames: 5, Codes: codes}
		}
		rec := &dataset.Record{
			ID:        id,
			Duration:  10,
			Beats:     []float64{1, 2, 3, 4},
			Downbeats: []float64{1, 3},
			Classes:   map[string]dataset.Grid{"vocals": grid(1), "bass": grid(2)},
		}
		if err := s.Put(rec); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func newTestRunner(t *testing.T, ckptDir string) (*Runner, *fakeGenerator) {
	t.Helper()
	gen := &fakeGenerator{out: make([]int32, 20)}
	for i := range gen.out {
		gen.out[i] = int32(i % 1024)
	}
	r := &Runner{
		Store:     seedStore(t, "s1", "s2", "s3"),
		Generator: gen,
		Codec:     fakeDecoder{},
		Registry:  testRegistry(ckptDir),
		Pipeline:  testPipeline(),
		OutputDir: t.TempDir(),
		Workers:   2,
		WriteAudio: func(path string, samples []int16, rate int) error {
			return os.WriteFile(path, nil, 0o644)
		},
	}
	return r, gen
}

func ckptDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "checkpoint-1000"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunClassGeneratesAll(t *testing.T) {
	r, gen := newTestRunner(t, ckptDir(t))

	res := r.RunClass(context.Background(), r.Registry.Classes[1], []string{"s1", "s2", "s3"})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Generated != 3 || res.Failed != 0 {
		t.Errorf("generated/failed = %d/%d, want 3/0", res.Generated, res.Failed)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.calls) != 3 {
		t.Fatalf("generator called %d times, want 3", len(gen.calls))
	}
	req := gen.calls[0]
	if len(req.InputIDs) != 20 || len(req.AttentionMask) != 20 || len(req.PosEmb) != 20 {
		t.Errorf("request lengths ids:%d mask:%d posemb:%d, want all 20",
			len(req.InputIDs), len(req.AttentionMask), len(req.PosEmb))
	}
	if len(req.PosEmb[0]) != 8 {
		t.Errorf("posemb width = %d, want 8 (4*K)", len(req.PosEmb[0]))
	}
	if req.FusionMode != "concat-replace" {
		t.Errorf("fusion mode = %q, want concat-replace", req.FusionMode)
	}
	if req.InputIDs[0] != 1 {
		t.Errorf("InputIDs[0] = %d, want conditioning token 1", req.InputIDs[0])
	}

	// Output files written per sample.
	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := os.Stat(filepath.Join(r.OutputDir, "bass", id+".wav")); err != nil {
			t.Errorf("missing output for %s: %v", id, err)
		}
	}
}

func TestRunClassResolvesConditioningDatasetKey(t *testing.T) {
	// The conditioning class is named "vocals" in the registry but its
	// grids are stored under the dataset key "vox"; generation must
	// resolve through the key instead of the display name.
	s, err := dataset.OpenInMemory(dataset.Meta{
		VocabSize: 1024, ContextLength: 20, FrameRate: 1, Harmonics: 2,
		PadValue: 0, Codebooks: 2, FusionMode: "concat-replace",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	grid := func(fill int32) dataset.Grid {
		codes := make([]int32, 10)
		for i := range codes {
			codes[i] = fill
		}
		return dataset.Grid{Codebooks: 2, Frames: 5, Codes: codes}
	}
	rec := &dataset.Record{
		ID:        "s1",
		Duration:  10,
		Beats:     []float64{1, 2, 3, 4},
		Downbeats: []float64{1, 3},
		Classes:   map[string]dataset.Grid{"vox": grid(1), "bass": grid(2)},
	}
	if err := s.Put(rec); err != nil {
		t.Fatal(err)
	}

	gen := &fakeGenerator{out: make([]int32, 20)}
	reg := &config.Registry{
		Conditioning: "vocals",
		Classes: []config.Class{
			{Name: "vocals", DatasetKey: "vox"},
			{Name: "bass", DatasetKey: "bass", CheckpointDir: ckptDir(t)},
		},
	}
	r := &Runner{
		Store:     s,
		Generator: gen,
		Codec:     fakeDecoder{},
		Registry:  reg,
		Pipeline:  testPipeline(),
		OutputDir: t.TempDir(),
		Workers:   1,
		WriteAudio: func(path string, samples []int16, rate int) error {
			return os.WriteFile(path, nil, 0o644)
		},
	}

	res := r.RunClass(context.Background(), reg.Classes[1], []string{"s1"})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Generated != 1 || res.Failed != 0 {
		t.Fatalf("generated/failed = %d/%d, want 1/0", res.Generated, res.Failed)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.calls) != 1 {
		t.Fatalf("generator called %d times, want 1", len(gen.calls))
	}
	if gen.calls[0].InputIDs[0] != 1 {
		t.Errorf("InputIDs[0] = %d, want 1 (conditioning tokens from the vox grid)", gen.calls[0].InputIDs[0])
	}
}

func TestRunClassIsolatesSampleFailures(t *testing.T) {
	r, _ := newTestRunner(t, ckptDir(t))

	// "ghost" has no record; the other two still generate.
	res := r.RunClass(context.Background(), r.Registry.Classes[1], []string{"s1", "ghost", "s2"})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Generated != 2 || res.Failed != 1 {
		t.Errorf("generated/failed = %d/%d, want 2/1", res.Generated, res.Failed)
	}
}

func TestRunClassNoCheckpoint(t *testing.T) {
	r, gen := newTestRunner(t, t.TempDir()) // empty dir: no checkpoints

	res := r.RunClass(context.Background(), r.Registry.Classes[1], []string{"s1"})
	if res.Err == nil {
		t.Fatal("expected class-level error for missing checkpoint")
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.calls) != 0 {
		t.Errorf("generator called %d times for halted class, want 0", len(gen.calls))
	}
}

func TestRunClassBadFusionMode(t *testing.T) {
	r, _ := newTestRunner(t, ckptDir(t))
	r.Pipeline.FusionMode = "bogus"
	res := r.RunClass(context.Background(), r.Registry.Classes[1], []string{"s1"})
	if res.Err == nil {
		t.Error("expected error for unknown fusion mode")
	}
}

func TestRunAllIsolatesClassFailures(t *testing.T) {
	r, _ := newTestRunner(t, ckptDir(t))
	r.Registry.Classes = append(r.Registry.Classes, config.Class{
		Name: "drums", DatasetKey: "drums", CheckpointDir: t.TempDir(),
	})

	results := r.RunAll(context.Background(), []string{"s1"})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 target classes", len(results))
	}
	byClass := make(map[string]ClassResult)
	for _, res := range results {
		byClass[res.Class] = res
	}
	if byClass["bass"].Err != nil || byClass["bass"].Generated != 1 {
		t.Errorf("bass should succeed, got %+v", byClass["bass"])
	}
	if byClass["drums"].Err == nil {
		t.Error("drums has no checkpoint and should report a class-level error")
	}
}

func TestRunClassRejectsIndivisibleOutput(t *testing.T) {
	r, gen := newTestRunner(t, ckptDir(t))
	gen.out = make([]int32, 21) // not divisible by 2 codebooks

	res := r.RunClass(context.Background(), r.Registry.Classes[1], []string{"s1"})
	if res.Failed != 1 || res.Generated != 0 {
		t.Errorf("generated/failed = %d/%d, want 0/1", res.Generated, res.Failed)
	}
}
