package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// EdgeProvider shells out to the edge-tts CLI (Microsoft neural voices).
type EdgeProvider struct {
	Voice string
	Rate  string
}

func (p *EdgeProvider) Name() string { return "edge-tts" }

func (p *EdgeProvider) Available() bool {
	_, err := exec.LookPath("edge-tts")
	return err == nil
}

func (p *EdgeProvider) Synthesize(ctx context.Context, text, outFile string) error {
	args := []string{
		"--voice", p.Voice,
		"--text", text,
		"--write-media", outFile,
	}
	if p.Rate != "" {
		args = append(args, "--rate="+p.Rate)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "edge-tts", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("edge-tts: %w (%s)", err, tail(stderr.String()))
	}
	return nil
}

// EdgeVoices lists the voice names known to the edge-tts CLI.
func EdgeVoices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "edge-tts", "--list-voices").Output()
	if err != nil {
		return nil, fmt.Errorf("edge-tts --list-voices: %w", err)
	}

	var voices []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		// The listing has a "Name Gender ..." header and separator rows.
		if name == "Name" || strings.HasPrefix(name, "-") {
			continue
		}
		voices = append(voices, name)
	}
	return voices, nil
}

// tail keeps error output short enough for a single log line.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = "..." + s[len(s)-200:]
	}
	if s == "" {
		s = "no stderr output"
	}
	return s
}
