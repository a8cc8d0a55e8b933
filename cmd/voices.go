package cmd

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/voice"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voices available from the installed providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		listed := 0

		if _, err := exec.LookPath("edge-tts"); err == nil {
			names, err := voice.EdgeVoices(cmd.Context())
			if err != nil {
				log.Printf("[voices] ⚠️  edge-tts voice listing failed: %v", err)
			} else {
				fmt.Printf("edge-tts (%d voices):\n", len(names))
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
				listed++
			}
		} else {
			log.Println("[voices] edge-tts not installed — skipping")
		}

		if os.Getenv("ELEVENLABS_API_KEY") != "" {
			p := voice.NewElevenLabsProvider("", "")
			elevenVoices, err := p.ListVoices(cmd.Context())
			if err != nil {
				log.Printf("[voices] ⚠️  ElevenLabs voice listing failed: %v", err)
			} else {
				fmt.Printf("elevenlabs (%d voices):\n", len(elevenVoices))
				for _, v := range elevenVoices {
					fmt.Printf("  %s  %s (%s)\n", v.VoiceID, v.Name, v.Category)
				}
				listed++
			}
		} else {
			log.Println("[voices] ELEVENLABS_API_KEY not set — skipping ElevenLabs")
		}

		if listed == 0 {
			return fmt.Errorf("no voice provider available: install edge-tts or set ELEVENLABS_API_KEY")
		}
		return nil
	},
}
