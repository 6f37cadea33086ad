package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/UtsahaJoshi/stemgen/internal/dataset"
	"github.com/UtsahaJoshi/stemgen/internal/fusion"
)

var (
	inspectClass    string
	inspectEmbedDim int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <sample-id>",
	Short: "Show one sample's record and packed geometry",
	Long: `Dump a stored sample: available classes, grid shapes, beat counts,
and, for a target class, the packed example geometry (context length,
mask density, positional-embedding shape).

The configured fusion convention is dry-run against a zero token
embedding of --embed-dim channels, catching width mismatches before a
training or inference run ever reaches the model server.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectClass, "class", "c", "", "pack this target class and show its geometry")
	inspectCmd.Flags().IntVar(&inspectEmbedDim, "embed-dim", 2048, "model embedding width for the fusion dry-run")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadEnv()
	if err != nil {
		return err
	}

	store, err := dataset.Open(cfg.StoreDir, storeMeta(cfg.Pipeline))
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("sample %s: %.2fs, %d beats, %d downbeats\n",
		rec.ID, rec.Duration, len(rec.Beats), len(rec.Downbeats))
	classes := make([]string, 0, len(rec.Classes))
	for name := range rec.Classes {
		classes = append(classes, name)
	}
	sort.Strings(classes)
	for _, name := range classes {
		g := rec.Classes[name]
		fmt.Printf("  %-12s %dx%d (%d tokens)\n", name, g.Codebooks, g.Frames, len(g.Codes))
	}

	if inspectClass == "" {
		return nil
	}

	class, err := reg.Lookup(inspectClass)
	if err != nil {
		return err
	}
	ex, err := dataset.BuildExample(rec, class.DatasetKey, dataset.ViewParams{
		ConditioningKey: reg.ConditioningKey(),
		ContextLength:   cfg.Pipeline.ContextLength,
		FrameRate:       cfg.Pipeline.FrameRate,
		Harmonics:       cfg.Pipeline.Harmonics,
		PadValue:        int32(cfg.Pipeline.PadValue),
	})
	if err != nil {
		return err
	}

	attended := 0
	for _, m := range ex.AttentionMask {
		if m {
			attended++
		}
	}
	rows, cols := ex.PosEmb.Dims()
	fmt.Printf("packed for %s: L=%d, attended %d/%d, posemb %dx%d\n",
		class.Name, len(ex.InputIDs), attended, len(ex.AttentionMask), rows, cols)

	// Fusion dry-run: the model server fuses with these same shapes.
	mode, err := fusion.ParseMode(cfg.Pipeline.FusionMode)
	if err != nil {
		return err
	}
	fused, err := fusion.Fuse(mode, mat.NewDense(rows, inspectEmbedDim, nil), ex.PosEmb)
	if err != nil {
		return fmt.Errorf("fusion dry-run (%s, embed-dim %d): %w", mode, inspectEmbedDim, err)
	}
	fr, fc := fused.Dims()
	fmt.Printf("fusion %s ok: %dx%d embedding\n", mode, fr, fc)
	return nil
}
