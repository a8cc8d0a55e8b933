package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	os.Unsetenv("OLLAMA_HOST")
	os.Unsetenv("IMAGE_SERVICE_URL")

	cfg := Default()

	if cfg.Script.Backend != "ollama" {
		t.Errorf("Script.Backend = %q, want ollama", cfg.Script.Backend)
	}
	if cfg.Script.OllamaModel != "llama3.2:3b" {
		t.Errorf("Script.OllamaModel = %q, want llama3.2:3b", cfg.Script.OllamaModel)
	}
	if cfg.Script.MinWords != 140 || cfg.Script.MaxWords != 160 {
		t.Errorf("word range = %d-%d, want 140-160", cfg.Script.MinWords, cfg.Script.MaxWords)
	}
	if cfg.Script.ImageCount != 8 {
		t.Errorf("Script.ImageCount = %d, want 8", cfg.Script.ImageCount)
	}
	if got := cfg.Voice.Providers; len(got) != 2 || got[0] != "edge" || got[1] != "say" {
		t.Errorf("Voice.Providers = %v, want [edge say]", got)
	}
	if cfg.Timestamps.Engine != "whisper" {
		t.Errorf("Timestamps.Engine = %q, want whisper", cfg.Timestamps.Engine)
	}
	if cfg.Timestamps.OnFailure != "abort" {
		t.Errorf("Timestamps.OnFailure = %q, want abort", cfg.Timestamps.OnFailure)
	}
	if cfg.Images.Width != 768 || cfg.Images.Height != 1344 {
		t.Errorf("image size = %dx%d, want 768x1344", cfg.Images.Width, cfg.Images.Height)
	}
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 {
		t.Errorf("video size = %dx%d, want 1080x1920", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.KenBurnsZoom != 1.12 {
		t.Errorf("Video.KenBurnsZoom = %f, want 1.12", cfg.Video.KenBurnsZoom)
	}
	if cfg.Video.Captions.WordsPerLine != 4 {
		t.Errorf("Captions.WordsPerLine = %d, want 4", cfg.Video.Captions.WordsPerLine)
	}
	if cfg.Paths.Output != "output" {
		t.Errorf("Paths.Output = %q, want output", cfg.Paths.Output)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	os.Unsetenv("OLLAMA_HOST")
	os.Unsetenv("IMAGE_SERVICE_URL")

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if cfg.Script.OllamaHost != "http://127.0.0.1:11434" {
		t.Errorf("OllamaHost = %q, want default", cfg.Script.OllamaHost)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	os.Unsetenv("OLLAMA_HOST")
	os.Unsetenv("IMAGE_SERVICE_URL")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
script:
  backend: openai
  openai_model: gpt-4o
video:
  fps: 24
  captions:
    words_per_line: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Script.Backend != "openai" {
		t.Errorf("Script.Backend = %q, want openai", cfg.Script.Backend)
	}
	if cfg.Script.OpenAIModel != "gpt-4o" {
		t.Errorf("Script.OpenAIModel = %q, want gpt-4o", cfg.Script.OpenAIModel)
	}
	if cfg.Video.FPS != 24 {
		t.Errorf("Video.FPS = %d, want 24", cfg.Video.FPS)
	}
	if cfg.Video.Captions.WordsPerLine != 5 {
		t.Errorf("Captions.WordsPerLine = %d, want 5", cfg.Video.Captions.WordsPerLine)
	}
	// Untouched sections keep their defaults
	if cfg.Script.OllamaModel != "llama3.2:3b" {
		t.Errorf("OllamaModel = %q, want default kept", cfg.Script.OllamaModel)
	}
	if cfg.Video.Width != 1080 {
		t.Errorf("Video.Width = %d, want default kept", cfg.Video.Width)
	}
}

func TestLoadEnvOverridesServiceURLs(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("IMAGE_SERVICE_URL", "http://gpu-box:7888")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Script.OllamaHost != "http://gpu-box:11434" {
		t.Errorf("OllamaHost = %q, want env override", cfg.Script.OllamaHost)
	}
	if cfg.Images.ServiceURL != "http://gpu-box:7888" {
		t.Errorf("Images.ServiceURL = %q, want env override", cfg.Images.ServiceURL)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("script: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load of invalid yaml should fail")
	}
}
