package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Script     ScriptConfig     `yaml:"script"`
	Voice      VoiceConfig      `yaml:"voice"`
	Timestamps TimestampsConfig `yaml:"timestamps"`
	Images     ImagesConfig     `yaml:"images"`
	Video      VideoConfig      `yaml:"video"`
	Music      MusicConfig      `yaml:"music"`
	Research   ResearchConfig   `yaml:"research"`
	Upload     UploadConfig     `yaml:"upload"`
	Paths      PathsConfig      `yaml:"paths"`
}

type ScriptConfig struct {
	Backend       string  `yaml:"backend"` // ollama | openai
	OllamaHost    string  `yaml:"ollama_host"`
	OllamaModel   string  `yaml:"ollama_model"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	OpenAIModel   string  `yaml:"openai_model"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`
	MaxTokens     int     `yaml:"max_tokens"`
	MinWords      int     `yaml:"min_words"`
	MaxWords      int     `yaml:"max_words"`
	ImageCount    int     `yaml:"image_count"`
	TargetSec     float64 `yaml:"target_duration_sec"`
	MinTotalSec   float64 `yaml:"min_total_sec"`
	MaxTotalSec   float64 `yaml:"max_total_sec"`
	ArtStyle      string  `yaml:"art_style"`
}

type VoiceConfig struct {
	Providers   []string `yaml:"providers"` // tried in order: edge | say | elevenlabs
	EdgeVoice   string   `yaml:"edge_voice"`
	EdgeRate    string   `yaml:"edge_rate"`
	SayVoice    string   `yaml:"say_voice"`
	SayRate     int      `yaml:"say_rate"`
	ElevenVoice string   `yaml:"elevenlabs_voice"`
	ElevenModel string   `yaml:"elevenlabs_model"`
	Attempts    int      `yaml:"attempts_per_provider"`
}

type TimestampsConfig struct {
	Engine       string  `yaml:"engine"` // whisper | align
	WhisperModel string  `yaml:"whisper_model"`
	OnFailure    string  `yaml:"on_failure"` // abort | align | none
	LeadInSec    float64 `yaml:"lead_in_sec"`
	TailSec      float64 `yaml:"tail_sec"`
}

type ImagesConfig struct {
	ServiceURL string  `yaml:"service_url"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Steps      int     `yaml:"steps"`
	CFGScale   float64 `yaml:"cfg_scale"`
	Sampler    string  `yaml:"sampler"`
	Shift      float64 `yaml:"shift"`
	TimeoutSec int     `yaml:"timeout_sec"`
}

type VideoConfig struct {
	Width            int            `yaml:"width"`
	Height           int            `yaml:"height"`
	FPS              int            `yaml:"fps"`
	KenBurnsZoom     float64        `yaml:"ken_burns_zoom"`
	CrossfadeSec     float64        `yaml:"crossfade_sec"`
	MinImageSec      float64        `yaml:"min_image_sec"`
	FitTimingToAudio bool           `yaml:"fit_timing_to_audio"`
	Preset           string         `yaml:"preset"`
	CRF              int            `yaml:"crf"`
	Captions         CaptionsConfig `yaml:"captions"`
}

type CaptionsConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Font         string  `yaml:"font"`
	FontSize     int     `yaml:"font_size"`
	OutlineWidth int     `yaml:"outline_width"`
	WordsPerLine int     `yaml:"words_per_line"`
	VerticalPos  float64 `yaml:"vertical_pos"` // 0.0 top .. 1.0 bottom
}

type MusicConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Dir        string  `yaml:"dir"`
	Volume     float64 `yaml:"volume"`
	FadeOutSec float64 `yaml:"fade_out_sec"`
}

type ResearchConfig struct {
	Subreddits     []string `yaml:"subreddits"`
	MinScore       int      `yaml:"min_score"`
	LookbackDays   int      `yaml:"lookback_days"`
	MaxSuggestions int      `yaml:"max_suggestions"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
}

type PathsConfig struct {
	Output        string `yaml:"output"`
	UsedTopicsLog string `yaml:"used_topics_log"`
}

// Default returns the built-in configuration. Every value here works without a
// config.yaml as long as the external tools (ollama, edge-tts, whisper, ffmpeg)
// are installed.
func Default() *Config {
	return &Config{
		Script: ScriptConfig{
			Backend:       "ollama",
			OllamaHost:    "http://127.0.0.1:11434",
			OllamaModel:   "llama3.2:3b",
			OpenAIBaseURL: "",
			OpenAIModel:   "gpt-4o-mini",
			Temperature:   0.7,
			TopP:          0.9,
			MaxTokens:     1024,
			MinWords:      140,
			MaxWords:      160,
			ImageCount:    8,
			TargetSec:     57.5,
			MinTotalSec:   50,
			MaxTotalSec:   65,
			ArtStyle:      "devotional digital painting, warm golden light, intricate detail, divine atmosphere",
		},
		Voice: VoiceConfig{
			Providers:   []string{"edge", "say"},
			EdgeVoice:   "en-IN-PrabhatNeural",
			EdgeRate:    "+5%",
			SayVoice:    "Rishi",
			SayRate:     150,
			ElevenVoice: "21m00Tcm4TlvDq8ikWAM",
			ElevenModel: "eleven_multilingual_v2",
			Attempts:    3,
		},
		Timestamps: TimestampsConfig{
			Engine:       "whisper",
			WhisperModel: "base",
			OnFailure:    "abort",
			LeadInSec:    0.3,
			TailSec:      0.5,
		},
		Images: ImagesConfig{
			ServiceURL: "http://127.0.0.1:7888",
			Width:      768,
			Height:     1344,
			Steps:      8,
			CFGScale:   1.0,
			Sampler:    "Euler A Trailing",
			Shift:      3.17,
			TimeoutSec: 600,
		},
		Video: VideoConfig{
			Width:            1080,
			Height:           1920,
			FPS:              30,
			KenBurnsZoom:     1.12,
			CrossfadeSec:     1.2,
			MinImageSec:      4.0,
			FitTimingToAudio: false,
			Preset:           "medium",
			CRF:              18,
			Captions: CaptionsConfig{
				Enabled:      true,
				Font:         "DejaVu Sans",
				FontSize:     72,
				OutlineWidth: 6,
				WordsPerLine: 4,
				VerticalPos:  0.75,
			},
		},
		Music: MusicConfig{
			Enabled:    false,
			Dir:        "assets/music",
			Volume:     0.15,
			FadeOutSec: 2.0,
		},
		Research: ResearchConfig{
			Subreddits:     []string{"hinduism", "bhajan", "IndianMythology"},
			MinScore:       20,
			LookbackDays:   7,
			MaxSuggestions: 10,
		},
		Upload: UploadConfig{
			Visibility:        "private",
			CategoryID:        "22",
			DefaultLanguage:   "en",
			MadeForKids:       false,
			NotifySubscribers: true,
		},
		Paths: PathsConfig{
			Output:        "output",
			UsedTopicsLog: "output/used_topics.json",
		},
	}
}

// Load reads a yaml config file over the defaults. A missing file is not an
// error: the defaults are returned as-is. Service URLs can always be
// overridden from the environment (OLLAMA_HOST, IMAGE_SERVICE_URL).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.Script.OllamaHost = envStr("OLLAMA_HOST", cfg.Script.OllamaHost)
	cfg.Images.ServiceURL = envStr("IMAGE_SERVICE_URL", cfg.Images.ServiceURL)
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
