package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/UtsahaJoshi/stemgen/internal/packing"
)

// PackedFile is the on-disk form of one packed example, consumed by the
// external training loop. Every field shares the fixed context length.
type PackedFile struct {
	SampleID      string      `msgpack:"sample_id"`
	InputIDs      []int32     `msgpack:"input_ids"`
	AttentionMask []bool      `msgpack:"attention_mask"`
	Labels        []int32     `msgpack:"labels"`
	PosEmb        [][]float64 `msgpack:"positional_embeddings"`
}

// NewPackedFile flattens an example's embedding matrix into row slices
// for serialization.
func NewPackedFile(ex *packing.Example) *PackedFile {
	rows, cols := ex.PosEmb.Dims()
	pos := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		copy(row, ex.PosEmb.RawRowView(i))
		pos[i] = row
	}
	return &PackedFile{
		SampleID:      ex.SampleID,
		InputIDs:      ex.InputIDs,
		AttentionMask: ex.AttentionMask,
		Labels:        ex.Labels,
		PosEmb:        pos,
	}
}

// Export writes every example in the view under dir, one msgpack file
// per sample id. The directory is created if missing.
func (v *View) Export(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dataset: export %s: %w", v.Class, err)
	}
	for _, id := range v.IDs {
		data, err := msgpack.Marshal(NewPackedFile(v.Examples[id]))
		if err != nil {
			return fmt.Errorf("dataset: export %s: marshal %s: %w", v.Class, id, err)
		}
		path := filepath.Join(dir, id+".msgpack")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("dataset: export %s: %w", v.Class, err)
		}
	}
	return nil
}
