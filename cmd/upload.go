package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bhakti-shorts-pipeline/script"
	"bhakti-shorts-pipeline/upload"
)

var uploadScriptFile string

var uploadCmd = &cobra.Command{
	Use:   "upload <video.mp4>",
	Short: "Upload a finished video to YouTube",
	Long: `upload publishes a rendered video as a YouTube Short, taking the title,
description, hashtags and tags from the run's script.json. Requires
YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		videoFile := args[0]
		scriptPath := uploadScriptFile
		if scriptPath == "" {
			scriptPath = filepath.Join(filepath.Dir(videoFile), "script.json")
		}
		scriptData, err := script.LoadFile(scriptPath, &cfg.Script)
		if err != nil {
			return fmt.Errorf("load script for upload: %w", err)
		}

		_, url, err := upload.New(cfg).Run(cmd.Context(), videoFile, scriptData)
		if err != nil {
			return err
		}
		fmt.Printf("\n🔗 %s\n", url)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadScriptFile, "script", "", "script.json for the video (default: sibling of the video file)")
}
