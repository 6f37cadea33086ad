package commands

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/beats"
	"github.com/UtsahaJoshi/stemgen/internal/codec"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
	"github.com/UtsahaJoshi/stemgen/internal/ingest"
)

var prepareInput string

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Ingest source clips into the dataset store",
	Long: `Scan a directory of samples and build dataset records.

Each immediate subdirectory is one sample; files inside named after a
class's dataset key (vocals.wav, bass.wav, ...) are that sample's clips.
The conditioning clip is decoded, beat-analyzed, and codec-encoded; every
other class clip is codec-encoded. Samples missing the conditioning clip
are skipped; individual failures never abort the batch.`,
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareInput, "input", "i", "", "directory of sample subdirectories (required)")
	prepareCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadEnv()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := dataset.Open(cfg.StoreDir, storeMeta(cfg.Pipeline))
	if err != nil {
		return err
	}
	defer store.Close()

	codecClient := codec.NewClient(cfg.CodecAPIURL, cfg.CodecAPIKey)
	beatClient := beats.NewClient(cfg.BeatAPIURL)

	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer healthCancel()
	if err := codecClient.WaitForHealthy(healthCtx); err != nil {
		return fmt.Errorf("codec service not available: %w", err)
	}
	if err := beatClient.WaitForHealthy(healthCtx); err != nil {
		return fmt.Errorf("beat detector not available: %w", err)
	}

	ing := &ingest.Ingestor{
		Store:    store,
		Codec:    codecClient,
		Beats:    beatClient,
		Registry: reg,
		Pipeline: cfg.Pipeline,
		Workers:  cfg.Workers,
	}

	sets, skipped, err := ing.ScanDir(prepareInput)
	if err != nil {
		return err
	}
	log.Printf("Found %d samples (%d skipped without conditioning clip)", len(sets), skipped)

	sum := ing.Run(ctx, sets)
	fmt.Printf("run %s: stored %d, failed %d, skipped %d\n", sum.RunID, sum.Stored, sum.Failed, skipped)
	if sum.Failed > 0 {
		log.Printf("%d samples failed; see log for details", sum.Failed)
	}
	return nil
}
