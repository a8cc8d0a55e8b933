package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsProvider calls the ElevenLabs text-to-speech API. It only joins
// the chain when ELEVENLABS_API_KEY is set.
type ElevenLabsProvider struct {
	VoiceID    string
	ModelID    string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabsProvider(voiceID, modelID string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		VoiceID:    voiceID,
		ModelID:    modelID,
		baseURL:    elevenLabsBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Available() bool {
	return os.Getenv("ELEVENLABS_API_KEY") != ""
}

type elevenTTSRequest struct {
	Text          string              `json:"text"`
	ModelID       string              `json:"model_id"`
	VoiceSettings elevenVoiceSettings `json:"voice_settings"`
}

type elevenVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, outFile string) error {
	body, err := json.Marshal(elevenTTSRequest{
		Text:    text,
		ModelID: p.ModelID,
		VoiceSettings: elevenVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", p.baseURL, p.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", os.Getenv("ELEVENLABS_API_KEY"))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if len(audio) < 1024 {
		return fmt.Errorf("elevenlabs returned %d bytes — not valid audio", len(audio))
	}
	return os.WriteFile(outFile, audio, 0644)
}

// ElevenVoice is one entry from the ElevenLabs voice catalog.
type ElevenVoice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ListVoices fetches the voices available to the configured API key.
func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]ElevenVoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", os.Getenv("ELEVENLABS_API_KEY"))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, string(msg))
	}

	var parsed struct {
		Voices []ElevenVoice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse voice list: %w", err)
	}
	return parsed.Voices, nil
}
