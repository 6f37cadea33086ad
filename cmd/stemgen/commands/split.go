package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/dataset"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Print the seeded train/validation partition",
	Long: `Print the train/validation sample-id partition for the store.

The split is a pure function of the configured seed, the held-out
fraction, and the store's id ordering, so the same store always yields
the same partition. Training and evaluation tooling consume this output
to stay consistent with each other.`,
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	store, err := dataset.Open(cfg.StoreDir, storeMeta(cfg.Pipeline))
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.IDs()
	if err != nil {
		return err
	}
	train, val, err := dataset.Split(ids, cfg.ValFraction, uint64(cfg.SplitSeed))
	if err != nil {
		return err
	}

	fmt.Printf("seed %d, validation fraction %v\n", cfg.SplitSeed, cfg.ValFraction)
	fmt.Printf("train (%d):\n", len(train))
	for _, id := range train {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("validation (%d):\n", len(val))
	for _, id := range val {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
