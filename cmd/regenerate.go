package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/pipeline"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [dir]",
	Short: "Re-run voice, timestamps and assembly from an existing script",
	Long: `regenerate re-voices and re-assembles a previous run without calling
the LLM or the image service again. It reads script.json and the image files
from the given directory (default: the configured output dir) and overwrites
narration.mp3, timestamps.json and final_video.mp4 in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.Paths.Output
		if len(args) > 0 {
			dir = args[0]
		}

		if _, err := pipeline.Regenerate(cmd.Context(), cfg, dir, verbose); err != nil {
			return fmt.Errorf("regenerate %s: %w", dir, err)
		}
		return nil
	},
}
