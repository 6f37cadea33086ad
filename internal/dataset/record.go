// Package dataset persists per-sample codec grids and beat events, and
// materializes fixed-length per-class training views from them.
package dataset

import "fmt"

// Grid is one instrument class's flattened codec output for a sample,
// row-major over (codebook, frame).
type Grid struct {
	Codebooks int     `msgpack:"codebooks"`
	Frames    int     `msgpack:"frames"`
	Codes     []int32 `msgpack:"codes"`
}

// Validate checks the grid geometry against its code count.
func (g *Grid) Validate() error {
	if g.Codebooks <= 0 || g.Frames <= 0 {
		return fmt.Errorf("dataset: invalid grid shape %dx%d", g.Codebooks, g.Frames)
	}
	if len(g.Codes) != g.Codebooks*g.Frames {
		return fmt.Errorf("dataset: grid has %d codes, want %dx%d=%d",
			len(g.Codes), g.Codebooks, g.Frames, g.Codebooks*g.Frames)
	}
	return nil
}

// Record is one sample's persisted payload: a token grid per available
// instrument class plus the beat/downbeat events shared across classes.
// Classes are sparse; a missing class simply excludes the sample from
// that class's view.
type Record struct {
	ID        string          `msgpack:"id"`
	Duration  float64         `msgpack:"duration"` // seconds
	Beats     []float64       `msgpack:"beats"`
	Downbeats []float64       `msgpack:"downbeats"`
	Classes   map[string]Grid `msgpack:"classes"`
}

// HasClass reports whether the record carries data for the given class.
func (r *Record) HasClass(class string) bool {
	_, ok := r.Classes[class]
	return ok
}

// Validate checks the record invariants shared by all views.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("dataset: record without id")
	}
	if r.Duration <= 0 {
		return fmt.Errorf("dataset: record %s has non-positive duration %v", r.ID, r.Duration)
	}
	if len(r.Beats) < 2 || len(r.Downbeats) < 2 {
		return fmt.Errorf("dataset: record %s has %d beats / %d downbeats, need at least 2 of each",
			r.ID, len(r.Beats), len(r.Downbeats))
	}
	for class, g := range r.Classes {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("dataset: record %s class %s: %w", r.ID, class, err)
		}
	}
	return nil
}

// Meta pins the pipeline constants a dataset was built with. Training and
// inference must agree on every field; a mismatch silently corrupts
// token/mask/embedding alignment, so the store refuses to open with
// different values.
type Meta struct {
	VocabSize     int     `msgpack:"vocab_size"`
	ContextLength int     `msgpack:"context_length"`
	FrameRate     float64 `msgpack:"frame_rate"`
	Harmonics     int     `msgpack:"harmonics"`
	PadValue      int32   `msgpack:"pad_value"`
	Codebooks     int     `msgpack:"codebooks"`
	FusionMode    string  `msgpack:"fusion_mode"`
}
