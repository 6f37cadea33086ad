package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestViewExport(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"a", "b"} {
		if err := s.Put(testRecord(id, "vocals", "bass")); err != nil {
			t.Fatal(err)
		}
	}

	v, err := Build(s, "bass", viewParams())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := v.Export(dir); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"a", "b"} {
		data, err := os.ReadFile(filepath.Join(dir, id+".msgpack"))
		if err != nil {
			t.Fatalf("missing export for %s: %v", id, err)
		}
		var pf PackedFile
		if err := msgpack.Unmarshal(data, &pf); err != nil {
			t.Fatal(err)
		}
		if pf.SampleID != id {
			t.Errorf("SampleID = %q, want %q", pf.SampleID, id)
		}
		if len(pf.InputIDs) != 20 || len(pf.AttentionMask) != 20 || len(pf.Labels) != 20 || len(pf.PosEmb) != 20 {
			t.Errorf("%s lengths ids:%d mask:%d labels:%d posemb:%d, want all 20",
				id, len(pf.InputIDs), len(pf.AttentionMask), len(pf.Labels), len(pf.PosEmb))
		}
		if len(pf.PosEmb[0]) != 8 {
			t.Errorf("%s posemb width = %d, want 8", id, len(pf.PosEmb[0]))
		}
		if pf.InputIDs[0] != 1 || pf.Labels[0] != 2 {
			t.Errorf("%s tokens = input %d / label %d, want 1 / 2", id, pf.InputIDs[0], pf.Labels[0])
		}
	}
}

func TestViewExportEmptyView(t *testing.T) {
	s := newTestStore(t)
	v, err := Build(s, "bass", viewParams())
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	if err := v.Export(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("export should create the directory even for an empty view: %v", err)
	}
}
