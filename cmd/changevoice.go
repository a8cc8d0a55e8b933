package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/pipeline"
)

var (
	changeVoiceID       string
	changeVoiceProvider string
)

var changeVoiceCmd = &cobra.Command{
	Use:   "change-voice [dir]",
	Short: "Re-voice an existing run with a different voice",
	Long: `change-voice re-synthesizes the narration of a previous run with the
given voice, refreshes the word timestamps, and re-assembles the video from
the existing script and images. Use "voices" to list what is available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Pin the chain to the chosen provider so the new voice is what
		// actually speaks, not a fallback.
		cfg.Voice.Providers = []string{changeVoiceProvider}
		switch changeVoiceProvider {
		case "edge":
			cfg.Voice.EdgeVoice = changeVoiceID
		case "say":
			cfg.Voice.SayVoice = changeVoiceID
		case "elevenlabs":
			cfg.Voice.ElevenVoice = changeVoiceID
		default:
			return fmt.Errorf("unknown provider %q (use edge, say or elevenlabs)", changeVoiceProvider)
		}

		dir := cfg.Paths.Output
		if len(args) > 0 {
			dir = args[0]
		}

		if _, err := pipeline.Regenerate(cmd.Context(), cfg, dir, verbose); err != nil {
			return fmt.Errorf("change-voice %s: %w", dir, err)
		}
		return nil
	},
}

func init() {
	changeVoiceCmd.Flags().StringVar(&changeVoiceID, "voice", "", "voice identifier for the chosen provider")
	changeVoiceCmd.Flags().StringVar(&changeVoiceProvider, "provider", "edge", "voice provider: edge, say or elevenlabs")
	_ = changeVoiceCmd.MarkFlagRequired("voice")
}
