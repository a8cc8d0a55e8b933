package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bhakti-shorts-pipeline/config"
)

// negativePrompt keeps text, logos and off-style artifacts out of every
// generated frame.
const negativePrompt = "text, letters, words, title, caption, watermark, signature, logo, label, " +
	"any writing, english text, hindi text, " +
	"photorealistic, photograph, 3d render, 3d cgi, " +
	"western comic, marvel style, dc style, manga, anime, " +
	"blurry, low quality, deformed, extra limbs, bad anatomy, " +
	"distorted face, disfigured, dark background"

// GenerationTimeoutError marks one prompt that timed out or errored against
// the image service. It is absorbed per index: the scene gets a placeholder
// and the run continues.
type GenerationTimeoutError struct {
	Index int
	Err   error
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("image %d generation timed out or failed: %v", e.Index, e.Err)
}

func (e *GenerationTimeoutError) Unwrap() error { return e.Err }

// Fetcher turns image prompts into PNG files, via a local txt2img service or
// deterministic placeholders.
type Fetcher struct {
	cfg        *config.Config
	httpClient *http.Client
}

func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Images.TimeoutSec) * time.Second,
		},
	}
}

// Run produces one image per prompt in outDir, named image_<i>.png and kept
// in prompt order. With placeholderOnly set the service is never contacted.
// In generate mode a failed or timed-out prompt degrades to a placeholder for
// that index only.
func (f *Fetcher) Run(ctx context.Context, prompts []string, outDir string, placeholderOnly bool) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	serviceUp := false
	if !placeholderOnly {
		serviceUp = f.available(ctx)
		if !serviceUp {
			log.Printf("[images] ⚠️  Image service not reachable at %s — using placeholders", f.cfg.Images.ServiceURL)
		}
	}

	paths := make([]string, len(prompts))
	generated := 0
	for i, prompt := range prompts {
		outFile := filepath.Join(outDir, fmt.Sprintf("image_%d.png", i))
		paths[i] = outFile

		if serviceUp {
			start := time.Now()
			err := f.generate(ctx, prompt, outFile)
			if err == nil {
				log.Printf("[images] ✅ Image %d/%d generated (%.1fs)", i+1, len(prompts), time.Since(start).Seconds())
				generated++
				continue
			}
			log.Printf("[images] ⚠️  %v — using placeholder", &GenerationTimeoutError{Index: i, Err: err})
		}

		if err := SavePlaceholder(i, f.cfg.Images.Width, f.cfg.Images.Height, outFile); err != nil {
			return nil, fmt.Errorf("write placeholder %d: %w", i, err)
		}
		log.Printf("[images] ✅ Placeholder %d/%d: %s", i+1, len(prompts), outFile)
	}

	if !placeholderOnly {
		log.Printf("[images] 📊 %d/%d images generated, %d placeholder(s)", generated, len(prompts), len(prompts)-generated)
	}
	return paths, nil
}

// available probes the service root with a short timeout so a dead service
// fails the whole batch over to placeholders at once.
func (f *Fetcher) available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.Images.ServiceURL, nil)
	if err != nil {
		return false
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
	Shift          float64 `json:"shift"`
	Seed           int     `json:"seed"`
	NIter          int     `json:"n_iter"`
	BatchSize      int     `json:"batch_size"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// generate requests one frame from the txt2img endpoint and writes the
// decoded PNG.
func (f *Fetcher) generate(ctx context.Context, prompt, outFile string) error {
	body, err := json.Marshal(txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		Width:          f.cfg.Images.Width,
		Height:         f.cfg.Images.Height,
		Steps:          f.cfg.Images.Steps,
		CFGScale:       f.cfg.Images.CFGScale,
		SamplerName:    f.cfg.Images.Sampler,
		Shift:          f.cfg.Images.Shift,
		Seed:           -1,
		NIter:          1,
		BatchSize:      1,
	})
	if err != nil {
		return err
	}

	url := f.cfg.Images.ServiceURL + "/sdapi/v1/txt2img"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, string(msg))
	}

	var parsed txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return fmt.Errorf("no images in response")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Images[0])
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if len(data) < 100 {
		return fmt.Errorf("image data too small (%d bytes)", len(data))
	}
	return os.WriteFile(outFile, data, 0644)
}
