package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/images"
	"bhakti-shorts-pipeline/script"
	"bhakti-shorts-pipeline/types"
	"bhakti-shorts-pipeline/video"
	"bhakti-shorts-pipeline/voice"
)

// Options selects what a single run does.
type Options struct {
	Topic      string
	ScriptFile string // skip generation, load this script instead
	Review     bool   // pause after the script stage for manual edits
	NoImages   bool   // placeholders instead of the image service
	NoVideo    bool   // stop after audio, timestamps and images
	Verbose    bool
	OutDir     string // override the configured output dir
}

// Run drives one topic through every stage: script, voice, timestamps,
// images and final video. All artifacts land in the output dir; the run
// state is saved there even when a stage fails.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*types.PipelineState, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = cfg.Paths.Output
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %v", err)
	}

	runID := uuid.NewString()[:8]
	log.Printf("🕉️  Bhakti Shorts Pipeline starting — Run ID: %s", runID)
	log.Printf("📁 Output dir: %s", outDir)

	state := &types.PipelineState{
		RunID:     runID,
		Topic:     opts.Topic,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(outDir, "pipeline_state.json"), state)
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: Script
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Script ━━━")
	var (
		scriptData *types.Script
		err        error
	)
	if opts.ScriptFile != "" {
		scriptData, err = script.LoadFile(opts.ScriptFile, &cfg.Script)
		if err == nil {
			log.Printf("[script] ✅ Loaded user script: %q", scriptData.Title)
		}
	} else {
		var writer *script.Writer
		writer, err = script.New(cfg)
		if err == nil {
			scriptData, err = writer.Run(ctx, opts.Topic)
		}
	}
	if err != nil {
		state.Error = fmt.Sprintf("Stage 1 Script: %v", err)
		return state, fmt.Errorf("Stage 1 Script: %w", err)
	}

	scriptPath := filepath.Join(outDir, "script.json")
	saveJSON(scriptPath, scriptData)
	state.ScriptFile = scriptPath

	if opts.Review {
		scriptData, err = reviewCheckpoint(scriptPath, &cfg.Script, os.Stdin)
		if err != nil {
			state.Error = fmt.Sprintf("Stage 1 Review: %v", err)
			return state, fmt.Errorf("Stage 1 Review: %w", err)
		}
		saveJSON(scriptPath, scriptData)
	}

	// ─────────────────────────────────────────────
	// STAGE 2: Voice
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Voice ━━━")
	audioFile := filepath.Join(outDir, "narration.mp3")
	voiceName, err := voice.New(cfg).Run(ctx, scriptData.Narration, audioFile)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 2 Voice: %v", err)
		return state, fmt.Errorf("Stage 2 Voice: %w", err)
	}
	state.AudioFile = audioFile
	state.VoiceUsed = voiceName

	// ─────────────────────────────────────────────
	// STAGE 3: Timestamps
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Timestamps ━━━")
	stamps, err := voice.Timestamps(ctx, cfg, scriptData.Narration, audioFile, filepath.Join(outDir, "whisper"))
	if err != nil {
		state.Error = fmt.Sprintf("Stage 3 Timestamps: %v", err)
		return state, fmt.Errorf("Stage 3 Timestamps: %w", err)
	}
	stampsPath := filepath.Join(outDir, "timestamps.json")
	if err := voice.SaveTimestamps(stamps, stampsPath); err != nil {
		state.Error = fmt.Sprintf("Stage 3 Timestamps: %v", err)
		return state, fmt.Errorf("Stage 3 Timestamps: %w", err)
	}
	state.TimestampsFile = stampsPath

	// ─────────────────────────────────────────────
	// STAGE 4: Images
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Images ━━━")
	imageFiles, err := images.New(cfg).Run(ctx, scriptData.ImagePrompts, outDir, opts.NoImages)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 4 Images: %v", err)
		return state, fmt.Errorf("Stage 4 Images: %w", err)
	}
	state.ImageFiles = imageFiles

	if opts.NoVideo {
		log.Println("\n⏭️  Skipping video assembly (--no-video)")
		log.Printf("✅ Pipeline complete! Artifacts in %s", outDir)
		return state, nil
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Video
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Video ━━━")
	assembler := video.New(cfg)
	assembler.Verbose = opts.Verbose
	videoFile, err := assembler.Run(ctx, scriptData, audioFile, stamps, imageFiles, outDir)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 5 Video: %v", err)
		return state, fmt.Errorf("Stage 5 Video: %w", err)
	}
	state.VideoFile = videoFile

	log.Printf("\n✅ Pipeline complete! Video: %s", videoFile)
	return state, nil
}

// Regenerate re-runs voice, timestamps and assembly from an existing output
// dir, reusing its script.json and image files. Stage numbering matches the
// full run so failure tags stay comparable.
func Regenerate(ctx context.Context, cfg *config.Config, outDir string, verbose bool) (*types.PipelineState, error) {
	scriptPath := filepath.Join(outDir, "script.json")
	scriptData, err := script.LoadFile(scriptPath, &cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", scriptPath, err)
	}

	runID := uuid.NewString()[:8]
	log.Printf("🔁 Regenerating %q from %s — Run ID: %s", scriptData.Title, outDir, runID)

	state := &types.PipelineState{
		RunID:     runID,
		Topic:     scriptData.Title,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	state.ScriptFile = scriptPath
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(outDir, "pipeline_state.json"), state)
	}()

	log.Println("\n━━━ STAGE 2: Voice ━━━")
	audioFile := filepath.Join(outDir, "narration.mp3")
	voiceName, err := voice.New(cfg).Run(ctx, scriptData.Narration, audioFile)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 2 Voice: %v", err)
		return state, fmt.Errorf("Stage 2 Voice: %w", err)
	}
	state.AudioFile = audioFile
	state.VoiceUsed = voiceName

	log.Println("\n━━━ STAGE 3: Timestamps ━━━")
	stamps, err := voice.Timestamps(ctx, cfg, scriptData.Narration, audioFile, filepath.Join(outDir, "whisper"))
	if err != nil {
		state.Error = fmt.Sprintf("Stage 3 Timestamps: %v", err)
		return state, fmt.Errorf("Stage 3 Timestamps: %w", err)
	}
	stampsPath := filepath.Join(outDir, "timestamps.json")
	if err := voice.SaveTimestamps(stamps, stampsPath); err != nil {
		state.Error = fmt.Sprintf("Stage 3 Timestamps: %v", err)
		return state, fmt.Errorf("Stage 3 Timestamps: %w", err)
	}
	state.TimestampsFile = stampsPath

	// The existing images are reused; the assembler reports any that are
	// missing.
	imageFiles := make([]string, len(scriptData.ImagePrompts))
	for i := range imageFiles {
		imageFiles[i] = filepath.Join(outDir, fmt.Sprintf("image_%d.png", i))
	}
	state.ImageFiles = imageFiles

	log.Println("\n━━━ STAGE 5: Video ━━━")
	assembler := video.New(cfg)
	assembler.Verbose = verbose
	videoFile, err := assembler.Run(ctx, scriptData, audioFile, stamps, imageFiles, outDir)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 5 Video: %v", err)
		return state, fmt.Errorf("Stage 5 Video: %w", err)
	}
	state.VideoFile = videoFile

	log.Printf("\n✅ Regeneration complete! Video: %s", videoFile)
	return state, nil
}

// reviewCheckpoint blocks until the user confirms the script, then reloads
// and re-validates it so manual edits are picked up.
func reviewCheckpoint(scriptPath string, cfg *config.ScriptConfig, in io.Reader) (*types.Script, error) {
	fmt.Printf("\n📝 Review the script: %s\n", scriptPath)
	fmt.Print("Edit the file if needed, then press Enter to continue (Ctrl+C aborts)... ")
	_, _ = bufio.NewReader(in).ReadString('\n')

	s, err := script.LoadFile(scriptPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("re-read script after review: %w", err)
	}
	log.Printf("[pipeline] ✅ Script re-validated after review: %q", s.Title)
	return s, nil
}

func saveJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
