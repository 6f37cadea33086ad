package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/config"
	"github.com/UtsahaJoshi/stemgen/internal/dataset"
)

var (
	exportClass string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Materialize per-class training sets from the store",
	Long: `Build each target class's dataset view and write its packed examples
to disk.

Every included sample becomes one msgpack file holding input_ids,
attention_mask, labels, and the positional embedding, all packed to the
fixed context length. Alongside the examples, train.txt and validation.txt
carry the seeded sample-id partition for that class.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportClass, "class", "c", "", "export only this class")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "./packed", "output directory")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, reg, err := loadEnv()
	if err != nil {
		return err
	}

	store, err := dataset.Open(cfg.StoreDir, storeMeta(cfg.Pipeline))
	if err != nil {
		return err
	}
	defer store.Close()

	targets := reg.Targets()
	if exportClass != "" {
		class, err := reg.Lookup(exportClass)
		if err != nil {
			return err
		}
		if class.Name == reg.Conditioning {
			return fmt.Errorf("class %q is the conditioning class, not an export target", class.Name)
		}
		targets = []config.Class{*class}
	}

	params := dataset.ViewParams{
		ConditioningKey: reg.ConditioningKey(),
		ContextLength:   cfg.Pipeline.ContextLength,
		FrameRate:       cfg.Pipeline.FrameRate,
		Harmonics:       cfg.Pipeline.Harmonics,
		PadValue:        int32(cfg.Pipeline.PadValue),
	}
	for _, class := range targets {
		v, err := dataset.Build(store, class.DatasetKey, params)
		if err != nil {
			return err
		}
		dir := filepath.Join(exportOut, class.Name)
		if err := v.Export(dir); err != nil {
			return err
		}

		train, val, err := dataset.Split(v.IDs, cfg.ValFraction, uint64(cfg.SplitSeed))
		if err != nil {
			return err
		}
		if err := writeIDList(filepath.Join(dir, "train.txt"), train); err != nil {
			return err
		}
		if err := writeIDList(filepath.Join(dir, "validation.txt"), val); err != nil {
			return err
		}
		fmt.Printf("%s: %d examples (%d train / %d validation, %d skipped)\n",
			class.Name, len(v.IDs), len(train), len(val), v.Skipped)
	}
	return nil
}

func writeIDList(path string, ids []string) error {
	buf := make([]byte, 0, len(ids)*16)
	for _, id := range ids {
		buf = append(buf, id...)
		buf = append(buf, '\n')
	}
	return os.WriteFile(path, buf, 0o644)
}
