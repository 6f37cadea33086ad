// Package ingest builds dataset records from source audio: it decodes each
// sample's per-class clips, runs beat detection on the conditioning track,
// encodes every class through the codec, and persists the assembled record.
// Samples are independent, so they run through a worker pool; one broken
// clip never stops the batch.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/UtsahaJoshi/stemgen/internal/audio"
	"github.com/UtsahaJoshi/stemgen/internal/beats"
	"github.com/UtsahaJoshi/stemgen/internal/codec"
	"github.com/UtsahaJoshi/stemgen/internal/config"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
)

// Encoder is the slice of the codec client the ingestor needs.
type Encoder interface {
	Encode(ctx context.Context, samples []int16, sampleRate, vocabSize int) ([][]int32, error)
}

// Analyzer is the slice of the beat detector client the ingestor needs.
type Analyzer interface {
	Analyze(ctx context.Context, clipID string, samples []int16, sampleRate int) (*beats.Events, error)
}

// ClipSet is one sample's source audio: a file per available class,
// keyed by dataset key.
type ClipSet struct {
	ID    string
	Files map[string]string
}

// Summary reports one ingest batch.
type Summary struct {
	RunID    string
	Stored   int
	Failed   int
	SkippedN int // directories without a conditioning clip
}

// Ingestor turns clip sets into stored dataset records.
type Ingestor struct {
	Store    *dataset.Store
	Codec    Encoder
	Beats    Analyzer
	Registry *config.Registry
	Pipeline config.Pipeline
	Workers  int

	// DecodeFile defaults to audio.DecodeFile (ffmpeg). Tests swap it out.
	DecodeFile func(path string, sampleRate, maxSecs int) ([]int16, error)
}

// ScanDir discovers clip sets under root. Each immediate subdirectory is
// one sample; inside it, files named <dataset_key>.<ext> map to classes
// from the registry. Directories lacking a conditioning clip are skipped
// (counted in the summary), since there is nothing to condition on.
func (ing *Ingestor) ScanDir(root string) ([]ClipSet, int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: scan %s: %w", root, err)
	}

	condKey := ing.Registry.ConditioningKey()
	var sets []ClipSet
	skipped := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := classFiles(dir, ing.Registry)
		if err != nil {
			return nil, 0, err
		}
		if _, ok := files[condKey]; !ok {
			log.Printf("Skipping %s: no %s clip", dir, condKey)
			skipped++
			continue
		}
		id := e.Name()
		if id == "" {
			id = uuid.NewString()
		}
		sets = append(sets, ClipSet{ID: id, Files: files})
	}
	return sets, skipped, nil
}

func classFiles(dir string, reg *config.Registry) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: scan %s: %w", dir, err)
	}
	keys := make(map[string]bool)
	for _, c := range reg.Classes {
		keys[c.DatasetKey] = true
	}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		key := name[:len(name)-len(filepath.Ext(name))]
		if keys[key] {
			files[key] = filepath.Join(dir, name)
		}
	}
	return files, nil
}

// Run ingests all clip sets through a worker pool and reports a summary.
// Per-sample failures are logged and counted, never fatal to the batch.
func (ing *Ingestor) Run(ctx context.Context, sets []ClipSet) Summary {
	sum := Summary{RunID: uuid.NewString()}
	log.Printf("Ingest run %s: %d samples", sum.RunID, len(sets))

	workers := ing.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan ClipSet)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for set := range jobs {
				err := ing.ingestSample(ctx, set)
				mu.Lock()
				if err != nil {
					log.Printf("Ingest %s: %v", set.ID, err)
					sum.Failed++
				} else {
					sum.Stored++
				}
				mu.Unlock()
			}
		}()
	}

	for _, set := range sets {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return sum
		case jobs <- set:
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("Ingest run %s done: %d stored, %d failed", sum.RunID, sum.Stored, sum.Failed)
	return sum
}

// ingestSample builds and stores one record: beats from the conditioning
// clip, a codec grid per class clip.
func (ing *Ingestor) ingestSample(ctx context.Context, set ClipSet) error {
	decode := ing.DecodeFile
	if decode == nil {
		decode = audio.DecodeFile
	}

	condKey := ing.Registry.ConditioningKey()
	condSamples, err := decode(set.Files[condKey], ing.Pipeline.SampleRate, ing.Pipeline.ClipSecs)
	if err != nil {
		return err
	}
	if len(condSamples) == 0 {
		return fmt.Errorf("conditioning clip decoded to zero samples")
	}
	duration := audio.Duration(condSamples, ing.Pipeline.SampleRate)

	events, err := ing.Beats.Analyze(ctx, set.ID, condSamples, ing.Pipeline.SampleRate)
	if err != nil {
		return err
	}

	rec := &dataset.Record{
		ID:        set.ID,
		Duration:  duration,
		Beats:     events.Beats,
		Downbeats: events.Downbeats,
		Classes:   make(map[string]dataset.Grid),
	}

	for key, path := range set.Files {
		samples := condSamples
		if key != condKey {
			samples, err = decode(path, ing.Pipeline.SampleRate, ing.Pipeline.ClipSecs)
			if err != nil {
				return fmt.Errorf("class %s: %w", key, err)
			}
		}
		grid, err := ing.Codec.Encode(ctx, samples, ing.Pipeline.SampleRate, ing.Pipeline.VocabSize)
		if err != nil {
			return fmt.Errorf("class %s: %w", key, err)
		}
		rec.Classes[key] = dataset.Grid{
			Codebooks: len(grid),
			Frames:    len(grid[0]),
			Codes:     codec.Flatten(grid),
		}
	}

	return ing.Store.Put(rec)
}
