package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"bhakti-shorts-pipeline/config"
)

type fakeProvider struct {
	name      string
	available bool
	failures  int
	calls     int
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) Synthesize(ctx context.Context, text, outFile string) error {
	p.calls++
	if p.calls <= p.failures {
		return fmt.Errorf("%s synthesis blew up", p.name)
	}
	return os.WriteFile(outFile, bytes.Repeat([]byte{0xFF}, 2048), 0644)
}

func newTestSynthesizer(t *testing.T, providers ...Provider) *Synthesizer {
	t.Helper()
	old := retryDelay
	retryDelay = 0
	t.Cleanup(func() { retryDelay = old })

	cfg := config.Default()
	cfg.Voice.Attempts = 2
	return &Synthesizer{cfg: cfg, providers: providers}
}

func TestRunFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "first", available: true}
	second := &fakeProvider{name: "second", available: true}
	s := newTestSynthesizer(t, first, second)

	out := filepath.Join(t.TempDir(), "narration.mp3")
	name, err := s.Run(context.Background(), "om namah shivaya", out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if name != "first" {
		t.Errorf("provider = %q, want first", name)
	}
	if second.calls != 0 {
		t.Errorf("second provider was called %d times", second.calls)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		t.Errorf("expected audio at %s", out)
	}
}

func TestRunSkipsUnavailableProvider(t *testing.T) {
	first := &fakeProvider{name: "first", available: false}
	second := &fakeProvider{name: "second", available: true}
	s := newTestSynthesizer(t, first, second)

	out := filepath.Join(t.TempDir(), "narration.mp3")
	name, err := s.Run(context.Background(), "hello", out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if name != "second" {
		t.Errorf("provider = %q, want second", name)
	}
	if first.calls != 0 {
		t.Errorf("unavailable provider was called %d times", first.calls)
	}
}

func TestRunRetriesBeforeFallingBack(t *testing.T) {
	flaky := &fakeProvider{name: "flaky", available: true, failures: 1}
	s := newTestSynthesizer(t, flaky)

	out := filepath.Join(t.TempDir(), "narration.mp3")
	name, err := s.Run(context.Background(), "hello", out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if name != "flaky" {
		t.Errorf("provider = %q, want flaky", name)
	}
	if flaky.calls != 2 {
		t.Errorf("calls = %d, want 2 (one failure, one retry)", flaky.calls)
	}
}

func TestRunAllProvidersFail(t *testing.T) {
	broken := &fakeProvider{name: "broken", available: true, failures: 99}
	alsoBroken := &fakeProvider{name: "also-broken", available: true, failures: 99}
	s := newTestSynthesizer(t, broken, alsoBroken)

	out := filepath.Join(t.TempDir(), "narration.mp3")
	_, err := s.Run(context.Background(), "hello", out)
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error is %T, want *SynthesisError", err)
	}
	if len(synthErr.Tried) != 2 {
		t.Errorf("Tried = %v, want both providers", synthErr.Tried)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("partial audio file should have been removed")
	}
}

func TestRunRejectsEmptyNarration(t *testing.T) {
	s := newTestSynthesizer(t, &fakeProvider{name: "any", available: true})
	if _, err := s.Run(context.Background(), "   ", "out.mp3"); err == nil {
		t.Fatal("expected error for empty narration")
	}
}

func TestVerifyAudioRejectsTinyFiles(t *testing.T) {
	dir := t.TempDir()

	tiny := filepath.Join(dir, "tiny.mp3")
	if err := os.WriteFile(tiny, []byte("oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := verifyAudio(tiny); err == nil {
		t.Error("expected tiny file to be rejected")
	}

	ok := filepath.Join(dir, "ok.mp3")
	if err := os.WriteFile(ok, bytes.Repeat([]byte{0xFF}, 4096), 0644); err != nil {
		t.Fatal(err)
	}
	if err := verifyAudio(ok); err != nil {
		t.Errorf("verifyAudio: %v", err)
	}

	if err := verifyAudio(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected missing file to be rejected")
	}
}

func TestNewBuildsConfiguredChain(t *testing.T) {
	cfg := config.Default()
	cfg.Voice.Providers = []string{"edge", "say", "mystery"}

	s := New(cfg)
	if len(s.providers) != 2 {
		t.Fatalf("got %d providers, want 2 (unknown name skipped)", len(s.providers))
	}
	if s.providers[0].Name() != "edge-tts" || s.providers[1].Name() != "say" {
		t.Errorf("chain = [%s, %s], want [edge-tts, say]", s.providers[0].Name(), s.providers[1].Name())
	}
}
