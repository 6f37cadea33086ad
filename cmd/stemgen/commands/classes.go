package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/UtsahaJoshi/stemgen/internal/model"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the configured instrument classes",
	Long: `List every class in the registry with its dataset key, checkpoint
directory, and the checkpoint that would be used for generation.`,
	RunE: runClasses,
}

func init() {
	rootCmd.AddCommand(classesCmd)
}

func runClasses(cmd *cobra.Command, args []string) error {
	_, reg, err := loadEnv()
	if err != nil {
		return err
	}

	fmt.Printf("conditioning: %s\n", reg.Conditioning)
	for _, c := range reg.Classes {
		if c.Name == reg.Conditioning {
			fmt.Printf("%-12s key=%s (conditioning)\n", c.Name, c.DatasetKey)
			continue
		}
		ckpt, err := model.FindCheckpoint(c.CheckpointDir)
		if err != nil {
			fmt.Printf("%-12s key=%s dir=%s checkpoint: %v\n", c.Name, c.DatasetKey, c.CheckpointDir, err)
			continue
		}
		fmt.Printf("%-12s key=%s dir=%s checkpoint=%s\n", c.Name, c.DatasetKey, c.CheckpointDir, ckpt)
	}
	return nil
}
