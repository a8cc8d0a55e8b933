package video

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

func TestResolveDurationsPassthrough(t *testing.T) {
	timing := []float64{7, 7, 8.5}

	got := resolveDurations(timing, 60, 4.0, false)
	for i := range timing {
		if got[i] != timing[i] {
			t.Errorf("durations[%d] = %v, want %v untouched", i, got[i], timing[i])
		}
	}

	// Unmeasurable audio also leaves timings alone, even in fit mode.
	got = resolveDurations(timing, 0, 4.0, true)
	if got[2] != 8.5 {
		t.Errorf("durations[2] = %v, want 8.5", got[2])
	}
}

func TestResolveDurationsFitsToAudio(t *testing.T) {
	got := resolveDurations([]float64{10, 10, 20}, 60, 4.0, true)

	sum := 0.0
	for _, d := range got {
		sum += d
	}
	if math.Abs(sum-60) > 1e-6 {
		t.Errorf("durations sum to %.3f, want 60", sum)
	}
	if math.Abs(got[0]-15) > 1e-6 || math.Abs(got[2]-30) > 1e-6 {
		t.Errorf("weights not honored: %v", got)
	}
}

func TestResolveDurationsClampsShortScenes(t *testing.T) {
	got := resolveDurations([]float64{1, 10, 10}, 42, 4.0, true)

	sum := 0.0
	for _, d := range got {
		sum += d
	}
	if math.Abs(sum-42) > 1e-6 {
		t.Errorf("durations sum to %.3f, want 42", sum)
	}
	if got[0] < 3.5 {
		t.Errorf("tiny scene got %.2fs, want it lifted near the minimum", got[0])
	}
}

func TestXfadeGraph(t *testing.T) {
	got := xfadeGraph([]float64{7, 7, 8}, 1.2)
	want := "[0:v][1:v]xfade=transition=fade:duration=1.200:offset=7.000[v1];" +
		"[v1][2:v]xfade=transition=fade:duration=1.200:offset=14.000[vout]"
	if got != want {
		t.Errorf("graph =\n%s\nwant\n%s", got, want)
	}
}

func TestXfadeGraphTwoSegments(t *testing.T) {
	got := xfadeGraph([]float64{5, 6}, 0.8)
	want := "[0:v][1:v]xfade=transition=fade:duration=0.800:offset=5.000[vout]"
	if got != want {
		t.Errorf("graph = %s, want %s", got, want)
	}
}

func TestKenBurnsFilter(t *testing.T) {
	got := kenBurnsFilter(0, 7.5, 1080, 1920, 30, 1.12)
	want := "scale=2160:3840,zoompan=z='min(zoom+0.000533,1.120)':" +
		"x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=225:fps=30,scale=1080:1920,setsar=1"
	if got != want {
		t.Errorf("filter =\n%s\nwant\n%s", got, want)
	}
}

func TestKenBurnsFilterCyclesPans(t *testing.T) {
	a := kenBurnsFilter(0, 5, 1080, 1920, 30, 1.12)
	b := kenBurnsFilter(1, 5, 1080, 1920, 30, 1.12)
	if a == b {
		t.Error("adjacent scenes should pan differently")
	}

	wrapped := kenBurnsFilter(len(panPresets), 5, 1080, 1920, 30, 1.12)
	if a != wrapped {
		t.Error("pan presets should cycle by index")
	}
}

func TestCheckAssets(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "narration.mp3")
	img := filepath.Join(dir, "image_0.png")
	if err := os.WriteFile(audio, []byte("audio-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(img, []byte("png-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := checkAssets(audio, []string{img}); err != nil {
		t.Errorf("checkAssets with everything present: %v", err)
	}

	missing := filepath.Join(dir, "image_1.png")
	err := checkAssets(audio, []string{img, missing})
	var assetErr *AssetMissingError
	if !errors.As(err, &assetErr) {
		t.Fatalf("error is %T, want *AssetMissingError", err)
	}
	if assetErr.Path != missing {
		t.Errorf("Path = %s, want %s", assetErr.Path, missing)
	}

	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := checkAssets(audio, []string{empty}); err == nil {
		t.Error("empty file should count as missing")
	}
}

func TestRunFailsFastOnMissingAssets(t *testing.T) {
	cfg := config.Default()
	script := &types.Script{Title: "t", SceneTiming: []float64{5}}

	_, err := New(cfg).Run(context.Background(), script, "/nonexistent/narration.mp3", nil, []string{"/nonexistent/image_0.png"}, t.TempDir())
	var assetErr *AssetMissingError
	if !errors.As(err, &assetErr) {
		t.Fatalf("error is %T (%v), want *AssetMissingError", err, err)
	}
}

func TestPickMusicTrackDeterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"aarti.mp3", "bells.mp3", "flute.m4a", "README.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	first, err := PickMusicTrack(dir, "Shiva and the Ganga")
	if err != nil {
		t.Fatalf("PickMusicTrack: %v", err)
	}
	second, err := PickMusicTrack(dir, "Shiva and the Ganga")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same seed picked %s then %s", first, second)
	}
	if filepath.Ext(first) == ".txt" {
		t.Errorf("picked a non-audio file: %s", first)
	}

	if _, err := PickMusicTrack(t.TempDir(), "seed"); err == nil {
		t.Error("expected error for empty music dir")
	}
}
