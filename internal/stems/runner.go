// Package stems drives per-class stem generation: for every configured
// instrument class it packs each sample's conditioning tokens and
// positional embedding, asks the model server for generated tokens, and
// decodes them back to audio through the codec.
//
// Failure domains are deliberately narrow: a class with no checkpoint is
// skipped while other classes continue, and one bad sample never aborts
// the rest of its class.
package stems

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/UtsahaJoshi/stemgen/internal/audio"
	"github.com/UtsahaJoshi/stemgen/internal/codec"
	"github.com/UtsahaJoshi/stemgen/internal/config"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
	"github.com/UtsahaJoshi/stemgen/internal/fusion"
	"github.com/UtsahaJoshi/stemgen/internal/model"
)

// Decoder is the slice of the codec client the runner needs.
type Decoder interface {
	Decode(ctx context.Context, codes [][]int32) ([]int16, int, error)
}

// WriteAudioFunc persists decoded PCM to an audio file.
type WriteAudioFunc func(path string, samples []int16, sampleRate int) error

// Runner generates stems for the classes in the registry.
type Runner struct {
	Store     *dataset.Store
	Generator model.Generator
	Codec     Decoder
	Registry  *config.Registry
	Pipeline  config.Pipeline
	OutputDir string
	Workers   int

	// WriteAudio defaults to audio.EncodeFile (ffmpeg). Tests swap it out.
	WriteAudio WriteAudioFunc
}

// ClassResult summarizes one class's batch run.
type ClassResult struct {
	Class     string
	Generated int
	Failed    int
	Err       error // class-level failure (checkpoint discovery), nil otherwise
}

// RunAll generates every target class for the given sample ids. Class
// failures are isolated: a class-level error is recorded in its result and
// the remaining classes still run.
func (r *Runner) RunAll(ctx context.Context, ids []string) []ClassResult {
	targets := r.Registry.Targets()
	results := make([]ClassResult, 0, len(targets))
	for _, class := range targets {
		res := r.RunClass(ctx, class, ids)
		if res.Err != nil {
			log.Printf("Class %s halted: %v", class.Name, res.Err)
		}
		results = append(results, res)
	}
	return results
}

// RunClass generates one class's stems for the given sample ids using a
// fixed-size worker pool. Per-sample errors are logged and counted.
func (r *Runner) RunClass(ctx context.Context, class config.Class, ids []string) ClassResult {
	res := ClassResult{Class: class.Name}

	// The fusion convention rides along with every request; an unknown
	// mode would be applied server-side against a model trained under a
	// different contract, so refuse it up front.
	if _, err := fusion.ParseMode(r.Pipeline.FusionMode); err != nil {
		res.Err = err
		return res
	}

	checkpoint, err := model.FindCheckpoint(class.CheckpointDir)
	if err != nil {
		res.Err = err
		return res
	}
	log.Printf("Class %s: using checkpoint %s", class.Name, checkpoint)

	if err := os.MkdirAll(filepath.Join(r.OutputDir, class.Name), 0o755); err != nil {
		res.Err = fmt.Errorf("stems: create output dir: %w", err)
		return res
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := r.generateSample(ctx, class, checkpoint, id)
				mu.Lock()
				if err != nil {
					log.Printf("Class %s: sample %s: %v", class.Name, id, err)
					res.Failed++
				} else {
					res.Generated++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			res.Err = ctx.Err()
			return res
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
	return res
}

// generateSample runs the full chain for one (sample, class) pair:
// pack -> generate -> reshape -> decode -> write audio.
func (r *Runner) generateSample(ctx context.Context, class config.Class, checkpoint, id string) error {
	rec, err := r.Store.Get(id)
	if err != nil {
		return err
	}
	condKey := r.Registry.ConditioningKey()
	if !rec.HasClass(condKey) {
		return fmt.Errorf("no conditioning %q data", condKey)
	}

	ex, err := dataset.BuildExample(rec, class.DatasetKey, dataset.ViewParams{
		ConditioningKey: condKey,
		ContextLength:   r.Pipeline.ContextLength,
		FrameRate:       r.Pipeline.FrameRate,
		Harmonics:       r.Pipeline.Harmonics,
		PadValue:        int32(r.Pipeline.PadValue),
	})
	if err != nil {
		return err
	}

	tokens, err := r.Generator.Generate(ctx, model.GenerateRequest{
		Checkpoint:    checkpoint,
		InputIDs:      ex.InputIDs,
		AttentionMask: ex.AttentionMask,
		PosEmb:        matRows(ex.PosEmb),
		FusionMode:    r.Pipeline.FusionMode,
	})
	if err != nil {
		return err
	}

	if len(tokens)%r.Pipeline.Codebooks != 0 {
		return fmt.Errorf("generated %d tokens, not divisible by %d codebooks", len(tokens), r.Pipeline.Codebooks)
	}
	grid, err := codec.Reshape(tokens, r.Pipeline.Codebooks, len(tokens)/r.Pipeline.Codebooks)
	if err != nil {
		return err
	}

	samples, rate, err := r.Codec.Decode(ctx, grid)
	if err != nil {
		return err
	}

	write := r.WriteAudio
	if write == nil {
		write = audio.EncodeFile
	}
	out := filepath.Join(r.OutputDir, class.Name, id+".wav")
	if err := write(out, samples, rate); err != nil {
		return err
	}
	log.Printf("Class %s: wrote %s", class.Name, out)
	return nil
}

// matRows flattens a dense matrix into row slices for the wire format.
func matRows(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		copy(row, m.RawRowView(i))
		out[i] = row
	}
	return out
}
