package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"bhakti-shorts-pipeline/config"
)

func testConfig(serviceURL string) *config.Config {
	cfg := config.Default()
	cfg.Images.ServiceURL = serviceURL
	cfg.Images.Width = 96
	cfg.Images.Height = 168
	cfg.Images.TimeoutSec = 5
	return cfg
}

func makeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i*31 + i/7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunGenerateMode(t *testing.T) {
	served := makeTestPNG(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/sdapi/v1/txt2img" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["width"].(float64) != 96 || req["height"].(float64) != 168 {
			t.Errorf("dimensions = %v×%v, want 96×168", req["width"], req["height"])
		}
		if req["sampler_name"] != "Euler A Trailing" {
			t.Errorf("sampler = %v", req["sampler_name"])
		}
		if req["seed"].(float64) != -1 {
			t.Errorf("seed = %v, want -1", req["seed"])
		}
		if req["negative_prompt"] == "" {
			t.Error("negative prompt missing")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"images": []string{base64.StdEncoding.EncodeToString(served)},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths, err := New(testConfig(srv.URL)).Run(context.Background(), []string{"shiva meditating", "ganga descending"}, dir, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}

	for i, p := range paths {
		want := filepath.Join(dir, "image_"+string(rune('0'+i))+".png")
		if p != want {
			t.Errorf("paths[%d] = %s, want %s", i, p, want)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.Equal(data, served) {
			t.Errorf("image %d does not match served bytes", i)
		}
	}
}

func TestRunPlaceholderModeSkipsService(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths, err := New(testConfig(srv.URL)).Run(context.Background(), []string{"a", "b", "c"}, dir, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("service was contacted %d times in placeholder mode", n)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing placeholder %s", p)
		}
	}
}

func TestRunAbsorbsPerImageFailure(t *testing.T) {
	served := makeTestPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Prompt, "cursed") {
			http.Error(w, "model exploded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"images": []string{base64.StdEncoding.EncodeToString(served)},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths, err := New(testConfig(srv.URL)).Run(context.Background(), []string{"fine", "cursed prompt", "also fine"}, dir, false)
	if err != nil {
		t.Fatalf("one bad prompt must not fail the run: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d paths, want 3", len(paths))
	}

	middle, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("read fallback image: %v", err)
	}
	if bytes.Equal(middle, served) {
		t.Error("failed prompt should have produced a placeholder, not served bytes")
	}
	if _, err := png.Decode(bytes.NewReader(middle)); err != nil {
		t.Errorf("fallback image is not valid PNG: %v", err)
	}
}

func TestRunServiceDownFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	dir := t.TempDir()
	paths, err := New(testConfig(srv.URL)).Run(context.Background(), []string{"a", "b"}, dir, false)
	if err != nil {
		t.Fatalf("unreachable service must not fail the run: %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing fallback image %s", p)
		}
	}
}
