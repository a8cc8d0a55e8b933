package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/pipeline"
)

var (
	cfgFile string
	verbose bool

	reviewFlag   bool
	scriptFile   string
	noImagesFlag bool
	noVideoFlag  bool
	outDirFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "bhakti-shorts [topic]",
	Short: "Generate devotional YouTube Shorts from a topic",
	Long: `bhakti-shorts turns a single topic into a finished vertical video:
an LLM writes the narration script, a TTS provider voices it, word timestamps
drive burned-in captions, and ffmpeg assembles Ken Burns image segments with
crossfades into a 1080x1920 short.

All intermediate artifacts (script.json, narration.mp3, timestamps.json,
image_N.png) land in the output directory next to final_video.mp4.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}
		if topic == "" && scriptFile == "" {
			return fmt.Errorf("a topic is required (or pass --script-file)")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		_, err = pipeline.Run(cmd.Context(), cfg, pipeline.Options{
			Topic:      topic,
			ScriptFile: scriptFile,
			Review:     reviewFlag,
			NoImages:   noImagesFlag,
			NoVideo:    noVideoFlag,
			Verbose:    verbose,
			OutDir:     outDirFlag,
		})
		return err
	},
}

// Execute runs the CLI. Stage failures exit non-zero with the stage-tagged
// message on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "surface raw tool and service output")

	rootCmd.Flags().BoolVar(&reviewFlag, "review", false, "pause after script generation for manual edits")
	rootCmd.Flags().StringVar(&scriptFile, "script-file", "", "use a pre-written script JSON instead of generating one")
	rootCmd.Flags().BoolVar(&noImagesFlag, "no-images", false, "use placeholder images instead of the generation service")
	rootCmd.Flags().BoolVar(&noVideoFlag, "no-video", false, "stop after audio, timestamps and images")
	rootCmd.Flags().StringVar(&outDirFlag, "out", "", "output directory (default from config)")

	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(changeVoiceCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(uploadCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
