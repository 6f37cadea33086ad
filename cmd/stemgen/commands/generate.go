package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/codec"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
	"github.com/UtsahaJoshi/stemgen/internal/model"
	"github.com/UtsahaJoshi/stemgen/internal/stems"
)

var (
	generateClass   string
	generateSamples []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate instrument stems for stored samples",
	Long: `Run per-class stem generation over samples in the dataset store.

For every target class in the registry (or a single class via --class),
each sample's conditioning tokens and positional embedding are packed to
the fixed context length and sent to the model server; generated tokens
are reshaped to the codec grid and decoded back to audio under the
output directory.

A class without a trained checkpoint is halted on its own; other classes
still run. Per-sample failures are logged and skipped.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateClass, "class", "c", "", "generate only this class")
	generateCmd.Flags().StringSliceVarP(&generateSamples, "sample", "s", nil, "sample ids (default: all stored)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadEnv()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := dataset.Open(cfg.StoreDir, storeMeta(cfg.Pipeline))
	if err != nil {
		return err
	}
	defer store.Close()

	ids := generateSamples
	if len(ids) == 0 {
		ids, err = store.IDs()
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no samples in store %s", cfg.StoreDir)
	}

	modelClient := model.NewClient(cfg.ModelAPIURL, cfg.ModelAPIKey, time.Duration(cfg.PollSecs)*time.Second)
	if err := modelClient.WaitForHealthy(ctx); err != nil {
		return fmt.Errorf("model server not available: %w", err)
	}

	runner := &stems.Runner{
		Store:     store,
		Generator: modelClient,
		Codec:     codec.NewClient(cfg.CodecAPIURL, cfg.CodecAPIKey),
		Registry:  reg,
		Pipeline:  cfg.Pipeline,
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
	}

	var results []stems.ClassResult
	if generateClass != "" {
		class, err := reg.Lookup(generateClass)
		if err != nil {
			return err
		}
		if class.Name == reg.Conditioning {
			return fmt.Errorf("class %q is the conditioning class, not a generation target", class.Name)
		}
		results = append(results, runner.RunClass(ctx, *class, ids))
	} else {
		results = runner.RunAll(ctx, ids)
	}

	failedClasses := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%s: halted: %v\n", res.Class, res.Err)
			failedClasses++
			continue
		}
		fmt.Printf("%s: generated %d, failed %d\n", res.Class, res.Generated, res.Failed)
	}
	if failedClasses == len(results) {
		return fmt.Errorf("all classes halted")
	}
	return nil
}
