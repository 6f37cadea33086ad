// Package commands implements the stemgen CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/config"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
)

var rootCmd = &cobra.Command{
	Use:   "stemgen",
	Short: "Beat-synchronized stem generation pipeline",
	Long: `stemgen prepares beat-aligned training data for a stem-generation
model and drives per-class inference against it.

Source clips are encoded through an external neural codec and analyzed by
an external beat detector; the resulting token grids and beat events are
stored per sample. From that store, per-class views pack conditioning
tokens, target tokens, and Fourier positional embeddings to the model's
fixed context length.

Configuration is read from STEMGEN_* environment variables; the instrument
class registry comes from a YAML file (STEMGEN_CLASSES).`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment configuration.
func loadConfig() config.Config {
	return config.Load()
}

// loadEnv assembles the runtime configuration and class registry.
func loadEnv() (config.Config, *config.Registry, error) {
	cfg := config.Load()
	reg, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, reg, nil
}

// storeMeta pins the pipeline constants for the dataset store.
func storeMeta(p config.Pipeline) dataset.Meta {
	return dataset.Meta{
		VocabSize:     p.VocabSize,
		ContextLength: p.ContextLength,
		FrameRate:     p.FrameRate,
		Harmonics:     p.Harmonics,
		PadValue:      int32(p.PadValue),
		Codebooks:     p.Codebooks,
		FusionMode:    p.FusionMode,
	}
}
