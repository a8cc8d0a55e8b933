package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

// TranscriptionError means word timestamps could not be derived from the
// narration audio.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Timestamps derives word-level timestamps for the narration audio. The
// primary engine is Whisper; on failure the configured policy decides
// whether to abort, fall back to proportional alignment, or continue with
// no timestamps (captions are skipped downstream).
func Timestamps(ctx context.Context, cfg *config.Config, narration, audioFile, workDir string) ([]types.WordStamp, error) {
	if cfg.Timestamps.Engine == "align" {
		log.Println("[voice] Using proportional text alignment for timestamps")
		return AlignText(narration, AudioDuration(audioFile), cfg.Timestamps.LeadInSec, cfg.Timestamps.TailSec), nil
	}

	stamps, err := WhisperWords(ctx, cfg.Timestamps.WhisperModel, audioFile, workDir)
	if err == nil {
		log.Printf("[voice] ✅ %d word timestamps from whisper", len(stamps))
		return stamps, nil
	}

	switch cfg.Timestamps.OnFailure {
	case "align":
		log.Printf("[voice] ⚠️  Whisper failed (%v) — falling back to proportional alignment", err)
		return AlignText(narration, AudioDuration(audioFile), cfg.Timestamps.LeadInSec, cfg.Timestamps.TailSec), nil
	case "none":
		log.Printf("[voice] ⚠️  Whisper failed (%v) — continuing without captions", err)
		return []types.WordStamp{}, nil
	default:
		return nil, &TranscriptionError{Err: err}
	}
}

// WhisperWords runs the whisper CLI with word timestamps enabled and parses
// its JSON output.
func WhisperWords(ctx context.Context, model, audioFile, workDir string) ([]types.WordStamp, error) {
	if _, err := exec.LookPath("whisper"); err != nil {
		return nil, fmt.Errorf("whisper CLI not found in PATH")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}

	log.Println("[voice] Running whisper transcription (word timestamps)...")
	cmd := exec.CommandContext(ctx,
		"whisper",
		audioFile,
		"--model", model,
		"--output_format", "json",
		"--output_dir", workDir,
		"--language", "en",
		"--word_timestamps", "True",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w", err)
	}

	// Whisper writes <audioBasename>.json into the output dir.
	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	outFile := filepath.Join(workDir, base+".json")
	data, err := os.ReadFile(outFile)
	if err != nil {
		return nil, fmt.Errorf("whisper output missing: %w", err)
	}

	return parseWhisperJSON(data)
}

type whisperOutput struct {
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// parseWhisperJSON flattens whisper segments into a monotonic word list.
// Whisper occasionally emits tiny overlaps between neighboring words, so
// starts are clamped to the previous end.
func parseWhisperJSON(data []byte) ([]types.WordStamp, error) {
	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse whisper JSON: %w", err)
	}

	var stamps []types.WordStamp
	for _, seg := range parsed.Segments {
		for _, w := range seg.Words {
			word := strings.TrimSpace(w.Word)
			if word == "" {
				continue
			}
			stamps = append(stamps, types.WordStamp{Word: word, Start: w.Start, End: w.End})
		}
	}
	if len(stamps) == 0 {
		return nil, fmt.Errorf("whisper output contains no word timestamps")
	}

	for i := range stamps {
		if i > 0 && stamps[i].Start < stamps[i-1].End {
			stamps[i].Start = stamps[i-1].End
		}
		if stamps[i].End <= stamps[i].Start {
			stamps[i].End = stamps[i].Start + 0.05
		}
	}
	return stamps, nil
}

// AlignText spreads the narration words evenly across the audio duration,
// reserving a lead-in before the first word and a tail after the last.
func AlignText(narration string, duration, leadIn, tail float64) []types.WordStamp {
	words := strings.Fields(narration)
	if len(words) == 0 || duration <= 0 {
		return nil
	}

	usable := duration - leadIn - tail
	if usable <= 0 {
		leadIn = 0
		usable = duration
	}
	per := usable / float64(len(words))

	stamps := make([]types.WordStamp, len(words))
	for i, w := range words {
		stamps[i] = types.WordStamp{
			Word:  w,
			Start: leadIn + float64(i)*per,
			End:   leadIn + float64(i+1)*per,
		}
	}
	return stamps
}

// SaveTimestamps writes the word list as a JSON array. An empty list still
// writes [] so the file is always present and parseable.
func SaveTimestamps(stamps []types.WordStamp, path string) error {
	if stamps == nil {
		stamps = []types.WordStamp{}
	}
	data, err := json.MarshalIndent(stamps, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTimestamps reads a saved JSON word list back.
func LoadTimestamps(path string) ([]types.WordStamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stamps []types.WordStamp
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return stamps, nil
}
