package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// SayProvider uses the macOS `say` command as an offline fallback. Output is
// AIFF, so the provider also needs ffmpeg to transcode to mp3.
type SayProvider struct {
	Voice string
	Rate  int
}

func (p *SayProvider) Name() string { return "say" }

func (p *SayProvider) Available() bool {
	if _, err := exec.LookPath("say"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

func (p *SayProvider) Synthesize(ctx context.Context, text, outFile string) error {
	aiff := strings.TrimSuffix(outFile, ".mp3") + ".aiff"
	defer os.Remove(aiff)

	args := []string{"-o", aiff}
	if p.Voice != "" {
		args = append(args, "-v", p.Voice)
	}
	if p.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(p.Rate))
	}
	args = append(args, text)

	if err := exec.CommandContext(ctx, "say", args...).Run(); err != nil {
		return fmt.Errorf("say: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", aiff,
		"-c:a", "libmp3lame", "-q:a", "2",
		outFile,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg aiff→mp3: %w (%s)", err, tail(stderr.String()))
	}
	return nil
}
