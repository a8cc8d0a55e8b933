package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/research"
)

var suggestMark string

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest trending topics from devotional subreddits",
	Long: `suggest scans the configured subreddits for recent, well-received posts,
scores them for devotional hook potential, and prints the top candidates.
Pick one, pass it back as the topic of a generate run, and record it with
--mark so later suggest runs skip it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := research.New(cfg)
		if err != nil {
			return err
		}

		if suggestMark != "" {
			s.MarkUsed(suggestMark)
			fmt.Printf("✅ Marked as used: %s\n", suggestMark)
			return nil
		}

		suggestions, err := s.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("\n💡 %d topic suggestions:\n\n", len(suggestions))
		for i, sug := range suggestions {
			fmt.Printf("%2d. %s\n", i+1, sug.Topic)
			fmt.Printf("    score %d · %s · %s\n", sug.Score, sug.Source, sug.SourceURL)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestMark, "mark", "", "record a topic as used instead of scanning")
}
