package dataset

import (
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/UtsahaJoshi/stemgen/internal/beatsync"
	"github.com/UtsahaJoshi/stemgen/internal/packing"
)

// ViewParams fixes the geometry a per-class view is packed with. Record
// grids are keyed by registry dataset key, so ConditioningKey must be the
// conditioning class's dataset key, not its display name.
type ViewParams struct {
	ConditioningKey string  // dataset key whose tokens become input_ids
	ContextLength   int     // fixed model context L
	FrameRate       float64 // positional frame rate, Hz
	Harmonics       int     // Fourier harmonics K
	PadValue        int32
}

// View is one instrument class's dataset: sample id -> packed example,
// holding only samples that carry data for that class. IDs preserves the
// store's iteration order for reproducible splits.
type View struct {
	Class    string
	IDs      []string
	Examples map[string]*packing.Example
	Skipped  int // samples with class data that failed to pack
}

// Build assembles the per-class view for a target dataset key. A sample
// is included iff its record has both the target key and the conditioning
// key: input_ids are drawn from the conditioning grid, so a sample without
// it cannot be packed. Per-sample failures (bad events, geometry
// mismatches) are logged and counted, never fatal to the rest of the view.
func Build(s *Store, class string, p ViewParams) (*View, error) {
	if class == p.ConditioningKey {
		return nil, fmt.Errorf("dataset: target key %q is the conditioning key", class)
	}
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	v := &View{Class: class, Examples: make(map[string]*packing.Example)}
	for _, id := range ids {
		rec, err := s.Get(id)
		if err != nil {
			log.Printf("View %s: sample %s unreadable: %v", class, id, err)
			v.Skipped++
			continue
		}
		if !rec.HasClass(class) || !rec.HasClass(p.ConditioningKey) {
			continue // expected sparsity, not an error
		}

		ex, err := BuildExample(rec, class, p)
		if err != nil {
			log.Printf("View %s: sample %s: %v", class, id, err)
			v.Skipped++
			continue
		}
		v.IDs = append(v.IDs, id)
		v.Examples[id] = ex
	}
	return v, nil
}

// BuildExample derives one sample's packed example for a target class:
// ramps from the stored events, Fourier encoding, and packing of the
// conditioning tokens, target tokens, and embedding to the context length.
func BuildExample(rec *Record, class string, p ViewParams) (*packing.Example, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	target, ok := rec.Classes[class]
	if !ok {
		return nil, fmt.Errorf("dataset: sample %s has no %q data", rec.ID, class)
	}
	cond, ok := rec.Classes[p.ConditioningKey]
	if !ok {
		return nil, fmt.Errorf("dataset: sample %s has no conditioning %q data", rec.ID, p.ConditioningKey)
	}

	beatRamp, err := beatsync.Ramp(rec.Beats, p.FrameRate, rec.Duration)
	if err != nil {
		return nil, fmt.Errorf("sample %s beats: %w", rec.ID, err)
	}
	downbeatRamp, err := beatsync.Ramp(rec.Downbeats, p.FrameRate, rec.Duration)
	if err != nil {
		return nil, fmt.Errorf("sample %s downbeats: %w", rec.ID, err)
	}
	posEmb, err := beatsync.Encode(downbeatRamp, beatRamp, p.Harmonics)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", rec.ID, err)
	}

	return packing.NewExample(rec.ID, cond.Codes, target.Codes, posEmb, p.ContextLength, p.PadValue)
}

// Split partitions sample ids into train and validation subsets. The
// permutation is a pure function of (seed, input ordering), so the same
// store contents always produce the same split.
func Split(ids []string, valFraction float64, seed uint64) (train, val []string, err error) {
	if valFraction < 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("dataset: validation fraction %v outside [0, 1)", valFraction)
	}
	perm := rand.New(rand.NewPCG(seed, 0)).Perm(len(ids))
	nVal := int(float64(len(ids)) * valFraction)

	val = make([]string, 0, nVal)
	train = make([]string, 0, len(ids)-nVal)
	for i, p := range perm {
		if i < nVal {
			val = append(val, ids[p])
		} else {
			train = append(train, ids[p])
		}
	}
	return train, val, nil
}
