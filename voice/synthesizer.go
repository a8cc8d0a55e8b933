package voice

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"bhakti-shorts-pipeline/config"
)

// Provider is one way of turning narration text into an audio file.
type Provider interface {
	Name() string
	Available() bool
	Synthesize(ctx context.Context, text, outFile string) error
}

// SynthesisError means every configured voice provider failed.
type SynthesisError struct {
	Tried []string
	Last  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("all voice providers failed (tried %s): %v", strings.Join(e.Tried, ", "), e.Last)
}

func (e *SynthesisError) Unwrap() error { return e.Last }

// retryDelay is the base backoff between synthesis attempts.
var retryDelay = 2 * time.Second

// Synthesizer runs narration through a provider chain: the first available
// provider that produces audio wins.
type Synthesizer struct {
	cfg       *config.Config
	providers []Provider
}

// New builds the provider chain from the configured provider names.
func New(cfg *config.Config) *Synthesizer {
	var providers []Provider
	for _, name := range cfg.Voice.Providers {
		switch name {
		case "edge":
			providers = append(providers, &EdgeProvider{Voice: cfg.Voice.EdgeVoice, Rate: cfg.Voice.EdgeRate})
		case "say":
			providers = append(providers, &SayProvider{Voice: cfg.Voice.SayVoice, Rate: cfg.Voice.SayRate})
		case "elevenlabs":
			providers = append(providers, NewElevenLabsProvider(cfg.Voice.ElevenVoice, cfg.Voice.ElevenModel))
		default:
			log.Printf("[voice] ⚠️  Unknown voice provider %q in config — skipping", name)
		}
	}
	return &Synthesizer{cfg: cfg, providers: providers}
}

// Run synthesizes the narration into outFile and returns the name of the
// provider that produced it. When no provider succeeds the partial file is
// removed and a SynthesisError is returned.
func (s *Synthesizer) Run(ctx context.Context, narration, outFile string) (string, error) {
	if strings.TrimSpace(narration) == "" {
		return "", fmt.Errorf("narration is empty")
	}

	attempts := s.cfg.Voice.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var tried []string
	var lastErr error

	for _, p := range s.providers {
		if !p.Available() {
			log.Printf("[voice] %s not available — trying next provider", p.Name())
			continue
		}
		tried = append(tried, p.Name())

		for attempt := 1; attempt <= attempts; attempt++ {
			err := p.Synthesize(ctx, narration, outFile)
			if err == nil {
				if err = verifyAudio(outFile); err == nil {
					log.Printf("[voice] ✅ Narration synthesized by %s → %s", p.Name(), outFile)
					return p.Name(), nil
				}
			}
			lastErr = err
			_ = os.Remove(outFile)
			if attempt < attempts {
				log.Printf("[voice] %s attempt %d failed: %v — retrying...", p.Name(), attempt, err)
				time.Sleep(time.Duration(attempt) * retryDelay)
			}
		}
		log.Printf("[voice] ⚠️  %s failed after %d attempts: %v", p.Name(), attempts, lastErr)
	}

	if len(tried) == 0 {
		lastErr = fmt.Errorf("no voice provider available (configured: %s)", strings.Join(s.cfg.Voice.Providers, ", "))
		tried = s.cfg.Voice.Providers
	}
	_ = os.Remove(outFile)
	return "", &SynthesisError{Tried: tried, Last: lastErr}
}

// verifyAudio rejects missing or suspiciously small output files.
func verifyAudio(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("no audio written: %w", err)
	}
	if fi.Size() < 1024 {
		return fmt.Errorf("audio file is only %d bytes — likely a failed synthesis", fi.Size())
	}
	return nil
}

// AudioDuration measures an audio file in seconds via ffprobe, estimating
// from the file size (~16 KB/s mp3) when ffprobe is unavailable.
func AudioDuration(audioFile string) float64 {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioFile,
	).Output()
	if err == nil {
		var dur float64
		if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err == nil && dur > 0 {
			return dur
		}
	}

	fi, err := os.Stat(audioFile)
	if err != nil {
		return 0
	}
	log.Printf("[voice] ⚠️  ffprobe unavailable — estimating duration from file size")
	return float64(fi.Size()) / 16000.0
}
