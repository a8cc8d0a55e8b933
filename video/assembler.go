package video

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

// AssetMissingError means a required input file for assembly is absent.
type AssetMissingError struct {
	Path string
}

func (e *AssetMissingError) Error() string {
	return "required asset missing: " + e.Path
}

// EncodingError wraps an ffmpeg failure with the assembly step it broke in.
type EncodingError struct {
	Stage string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed during %s: %v", e.Stage, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Assembler renders the final vertical video from images, narration and
// word timestamps.
type Assembler struct {
	cfg     *config.Config
	Verbose bool
}

func New(cfg *config.Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Run builds final_video.mp4 in outDir: one Ken Burns segment per image,
// crossfaded together, captions burned in, narration (optionally mixed with
// music) muxed underneath. Total length is the sum of the scene timings.
func (a *Assembler) Run(ctx context.Context, script *types.Script, audioFile string, stamps []types.WordStamp, imageFiles []string, outDir string) (string, error) {
	log.Println("[video] Starting final video assembly...")

	if err := checkAssets(audioFile, imageFiles); err != nil {
		return "", err
	}
	if len(imageFiles) != len(script.SceneTiming) {
		return "", fmt.Errorf("have %d images for %d scene timings", len(imageFiles), len(script.SceneTiming))
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH")
	}

	workDir := filepath.Join(outDir, "segments")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", err
	}

	audioDur := probeDuration(audioFile)
	durations := resolveDurations(script.SceneTiming, audioDur, a.cfg.Video.MinImageSec, a.cfg.Video.FitTimingToAudio)

	segments, err := a.renderSegments(ctx, imageFiles, durations, workDir)
	if err != nil {
		return "", err
	}

	silent, err := a.joinSegments(ctx, segments, durations, workDir)
	if err != nil {
		return "", err
	}

	captioned := silent
	if a.cfg.Video.Captions.Enabled && len(stamps) > 0 {
		captioned, err = a.burnCaptions(ctx, silent, stamps, workDir)
		if err != nil {
			return "", err
		}
	} else if a.cfg.Video.Captions.Enabled {
		log.Println("[video] No word timestamps — skipping captions")
	}

	finalAudio := audioFile
	if a.cfg.Music.Enabled {
		mixed, err := a.mixMusic(ctx, audioFile, script.Title, audioDur, workDir)
		if err != nil {
			log.Printf("[video] ⚠️  Music mix failed: %v — using narration only", err)
		} else {
			finalAudio = mixed
		}
	}

	total := 0.0
	for _, d := range durations {
		total += d
	}

	outFile := filepath.Join(outDir, "final_video.mp4")
	err = a.ffmpeg(ctx, "-y",
		"-i", captioned,
		"-i", finalAudio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-t", fmt.Sprintf("%.3f", total),
		outFile,
	)
	if err != nil {
		return "", &EncodingError{Stage: "final mux", Err: err}
	}

	log.Printf("[video] ✅ Final video ready: %s (%.1fs)", outFile, total)
	return outFile, nil
}

// checkAssets verifies every input exists and is non-empty before any
// encoding starts.
func checkAssets(audioFile string, imageFiles []string) error {
	paths := append([]string{audioFile}, imageFiles...)
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || fi.Size() == 0 {
			return &AssetMissingError{Path: p}
		}
	}
	return nil
}

// renderSegments encodes one Ken Burns clip per image. Every segment except
// the last is rendered one crossfade longer than its display time, since the
// crossfade consumes that overlap.
func (a *Assembler) renderSegments(ctx context.Context, imageFiles []string, durations []float64, workDir string) ([]string, error) {
	crossfade := a.cfg.Video.CrossfadeSec
	segments := make([]string, len(imageFiles))

	for i, img := range imageFiles {
		segSec := durations[i]
		if i < len(imageFiles)-1 && len(imageFiles) > 1 {
			segSec += crossfade
		}

		seg := filepath.Join(workDir, fmt.Sprintf("seg_%03d.mp4", i))
		segments[i] = seg

		filter := kenBurnsFilter(i, segSec, a.cfg.Video.Width, a.cfg.Video.Height, a.cfg.Video.FPS, a.cfg.Video.KenBurnsZoom)
		err := a.ffmpeg(ctx, "-y",
			"-loop", "1",
			"-i", img,
			"-vf", filter,
			"-t", fmt.Sprintf("%.3f", segSec),
			"-c:v", "libx264",
			"-preset", a.cfg.Video.Preset,
			"-crf", strconv.Itoa(a.cfg.Video.CRF),
			"-pix_fmt", "yuv420p",
			"-an",
			seg,
		)
		if err != nil {
			return nil, &EncodingError{Stage: fmt.Sprintf("scene %d segment", i), Err: err}
		}
		log.Printf("[video] Segment %d/%d rendered (%.1fs)", i+1, len(imageFiles), segSec)
	}
	return segments, nil
}

// joinSegments chains the clips with xfade transitions. Offsets are
// cumulative display times, so the joined length equals the timing sum.
func (a *Assembler) joinSegments(ctx context.Context, segments []string, durations []float64, workDir string) (string, error) {
	if len(segments) == 1 {
		return segments[0], nil
	}

	args := []string{"-y"}
	for _, seg := range segments {
		args = append(args, "-i", seg)
	}
	args = append(args,
		"-filter_complex", xfadeGraph(durations, a.cfg.Video.CrossfadeSec),
		"-map", "[vout]",
		"-c:v", "libx264",
		"-preset", a.cfg.Video.Preset,
		"-crf", strconv.Itoa(a.cfg.Video.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
	)
	outFile := filepath.Join(workDir, "silent.mp4")
	args = append(args, outFile)

	if err := a.ffmpeg(ctx, args...); err != nil {
		return "", &EncodingError{Stage: "crossfade join", Err: err}
	}
	return outFile, nil
}

// burnCaptions renders the word-synced phrases into the video.
func (a *Assembler) burnCaptions(ctx context.Context, videoFile string, stamps []types.WordStamp, workDir string) (string, error) {
	phrases := GroupWords(stamps, a.cfg.Video.Captions.WordsPerLine)
	assFile := filepath.Join(workDir, "captions.ass")
	if err := WriteASS(phrases, &a.cfg.Video.Captions, a.cfg.Video.Width, a.cfg.Video.Height, assFile); err != nil {
		return "", err
	}

	outFile := filepath.Join(workDir, "captioned.mp4")
	err := a.ffmpeg(ctx, "-y",
		"-i", videoFile,
		"-vf", "subtitles="+escapeFilterPath(assFile),
		"-c:v", "libx264",
		"-preset", a.cfg.Video.Preset,
		"-crf", strconv.Itoa(a.cfg.Video.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		return "", &EncodingError{Stage: "caption burn", Err: err}
	}
	log.Printf("[video] ✅ %d caption phrases burned in", len(phrases))
	return outFile, nil
}

// mixMusic lays a background track under the narration at low volume with a
// fade-out at the end. The track choice is stable per title.
func (a *Assembler) mixMusic(ctx context.Context, narrationFile, title string, narrationDur float64, workDir string) (string, error) {
	track, err := PickMusicTrack(a.cfg.Music.Dir, title)
	if err != nil {
		return "", err
	}
	log.Printf("[video] Mixing background music: %s", filepath.Base(track))

	fadeStart := narrationDur - a.cfg.Music.FadeOutSec
	if fadeStart < 0 {
		fadeStart = 0
	}
	filter := fmt.Sprintf(
		"[1:a]volume=%.2f,afade=t=out:st=%.2f:d=%.2f[bg];[0:a][bg]amix=inputs=2:duration=first:normalize=0[aout]",
		a.cfg.Music.Volume, fadeStart, a.cfg.Music.FadeOutSec,
	)

	outFile := filepath.Join(workDir, "audio_mixed.mp3")
	err = a.ffmpeg(ctx, "-y",
		"-i", narrationFile,
		"-stream_loop", "-1",
		"-i", track,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outFile,
	)
	if err != nil {
		return "", fmt.Errorf("ffmpeg audio mix: %w", err)
	}
	return outFile, nil
}

// PickMusicTrack returns a track from dir, chosen by hashing the seed so
// the same title always gets the same music.
func PickMusicTrack(dir, seed string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("music dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".mp3", ".m4a", ".wav", ".aac":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no music tracks in %s", dir)
	}

	h := fnv.New32a()
	h.Write([]byte(seed))
	return filepath.Join(dir, names[int(h.Sum32())%len(names)]), nil
}

// panPresets are the camera paths cycled by scene index. {F} is replaced by
// the segment's frame count. Zoom always rises, only the pan varies.
var panPresets = []struct{ x, y string }{
	{"iw/2-(iw/zoom/2)", "ih/2-(ih/zoom/2)"},
	{"(iw-iw/zoom)*on/{F}", "ih/2-(ih/zoom/2)"},
	{"(iw-iw/zoom)*(1-on/{F})", "ih/2-(ih/zoom/2)"},
	{"iw/2-(iw/zoom/2)", "(ih-ih/zoom)*on/{F}"},
	{"iw/2-(iw/zoom/2)", "(ih-ih/zoom)*(1-on/{F})"},
	{"(iw-iw/zoom)*on/{F}", "(ih-ih/zoom)*on/{F}"},
	{"(iw-iw/zoom)*(1-on/{F})", "(ih-ih/zoom)*on/{F}"},
	{"(iw-iw/zoom)*on/{F}", "(ih-ih/zoom)*(1-on/{F})"},
}

// kenBurnsFilter builds the zoompan chain for one segment: upscale 2x to
// keep the pan smooth, zoom linearly from 1.0 to the target, downscale to
// the frame size.
func kenBurnsFilter(index int, seconds float64, width, height, fps int, zoom float64) string {
	frames := int(seconds * float64(fps))
	if frames < 1 {
		frames = 1
	}
	step := (zoom - 1.0) / float64(frames)

	preset := panPresets[index%len(panPresets)]
	fr := strconv.Itoa(frames)
	x := strings.ReplaceAll(preset.x, "{F}", fr)
	y := strings.ReplaceAll(preset.y, "{F}", fr)

	return fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.3f)':x='%s':y='%s':d=%d:fps=%d,scale=%d:%d,setsar=1",
		width*2, height*2, step, zoom, x, y, frames, fps, width, height,
	)
}

// xfadeGraph chains n inputs with fade transitions. The offset of each fade
// is the cumulative display time of the segments before it, which keeps the
// result length at exactly the sum of the durations.
func xfadeGraph(durations []float64, crossfade float64) string {
	var b strings.Builder
	prev := "[0:v]"
	offset := 0.0

	for i := 1; i < len(durations); i++ {
		offset += durations[i-1]
		out := fmt.Sprintf("[v%d]", i)
		if i == len(durations)-1 {
			out = "[vout]"
		}
		fmt.Fprintf(&b, "%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s",
			prev, i, crossfade, offset, out)
		if i < len(durations)-1 {
			b.WriteString(";")
		}
		prev = out
	}
	return b.String()
}

// resolveDurations returns the display seconds per image. By default the
// scene timings are used as-is; with fit enabled they become weights scaled
// to cover the narration exactly, each clamped to the minimum.
func resolveDurations(timing []float64, audioDur, minSec float64, fit bool) []float64 {
	out := make([]float64, len(timing))
	copy(out, timing)
	if !fit || audioDur <= 0 {
		return out
	}

	total := 0.0
	for _, t := range timing {
		total += t
	}
	if total <= 0 {
		return out
	}

	sum := 0.0
	for i, t := range timing {
		d := t / total * audioDur
		if d < minSec {
			d = minSec
		}
		out[i] = d
		sum += d
	}
	scale := audioDur / sum
	for i := range out {
		out[i] *= scale
	}
	return out
}

// ffmpeg runs one ffmpeg invocation. Verbose passes tool output through;
// otherwise stderr is captured and folded into the error.
func (a *Assembler) ffmpeg(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if a.Verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w (%s)", err, lastLine(stderr.String()))
	}
	return nil
}

// probeDuration measures a media file in seconds, 0 when unmeasurable.
func probeDuration(path string) float64 {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0
	}
	var dur float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err != nil {
		return 0
	}
	return dur
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}

// lastLine trims ffmpeg stderr down to its final non-empty line.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no stderr output"
}
