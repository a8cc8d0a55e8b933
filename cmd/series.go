package cmd

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/pipeline"
	"bhakti-shorts-pipeline/script"
)

var (
	seriesParts    int
	seriesNoImages bool
	seriesNoVideo  bool
)

var seriesCmd = &cobra.Command{
	Use:   "series <theme>",
	Short: "Generate a multi-part series from one theme",
	Long: `series asks the LLM to split a theme into part topics, then runs the
full pipeline once per part. Each part lands in output/part_<n>/ with the
standard layout, and later part prompts carry the earlier titles so the
story continues instead of repeating.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		writer, err := script.New(cfg)
		if err != nil {
			return err
		}
		outline, err := writer.Outline(cmd.Context(), args[0], seriesParts)
		if err != nil {
			return fmt.Errorf("series outline: %w", err)
		}

		for i := range outline.Parts {
			log.Printf("\n🎬 ══════ PART %d/%d ══════", i+1, len(outline.Parts))
			_, err := pipeline.Run(cmd.Context(), cfg, pipeline.Options{
				Topic:    script.PartTopic(outline, i),
				NoImages: seriesNoImages,
				NoVideo:  seriesNoVideo,
				Verbose:  verbose,
				OutDir:   filepath.Join(cfg.Paths.Output, fmt.Sprintf("part_%d", i+1)),
			})
			if err != nil {
				return fmt.Errorf("part %d: %w", i+1, err)
			}
		}

		log.Printf("\n✅ Series complete: %d parts in %s", len(outline.Parts), cfg.Paths.Output)
		return nil
	},
}

func init() {
	seriesCmd.Flags().IntVar(&seriesParts, "parts", 3, "number of parts in the series")
	seriesCmd.Flags().BoolVar(&seriesNoImages, "no-images", false, "use placeholder images for every part")
	seriesCmd.Flags().BoolVar(&seriesNoVideo, "no-video", false, "stop each part after audio, timestamps and images")
}
