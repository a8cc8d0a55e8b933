package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/ollama"
	"bhakti-shorts-pipeline/types"
)

const systemPrompt = `You are a devotional storyteller for a faceless YouTube Shorts channel about Sanatan Dharma — Hindu scriptures, deities, temples and legends. You write warm, reverent, cinematic narrations that make ancient stories feel alive for a modern audience.

You MUST respond with ONLY a valid JSON object — no preamble, no markdown, no explanation.

The JSON object must have EXACTLY these keys:
- "title": a short, curiosity-driven video title (under 80 characters)
- "narration": the full spoken narration, 140-160 words, plain flowing prose, no stage directions
- "description": a 2-3 sentence YouTube description
- "hashtags": array of 5-8 hashtag strings
- "tags": array of 8-12 plain keyword strings for YouTube search
- "image_prompts": array of exactly 8 vivid image generation prompts, one per scene, each a single sentence describing what is on screen
- "scene_timing": array of exactly 8 positive numbers, the seconds each image stays on screen, summing to 55-60

Rules:
- The narration must flow as one continuous story; the 8 image prompts follow its beats in order.
- Open with a hook in the first sentence stated as fact, not a question.
- Never ask the viewer to like or subscribe inside the narration.`

// MalformedScriptError reports model output that failed JSON parsing or
// validation, after the single repair re-ask has also failed.
type MalformedScriptError struct {
	Reason string
	Raw    string
}

func (e *MalformedScriptError) Error() string {
	return "malformed script: " + e.Reason
}

// generator produces one JSON completion from a system + user prompt pair.
// schema carries a JSON schema for backends that enforce structured output;
// backends without schema support ignore it.
type generator interface {
	Name() string
	CompleteJSON(ctx context.Context, system, user string, schema any) (string, error)
}

// Writer generates and validates video scripts via a local LLM.
type Writer struct {
	cfg *config.Config
	gen generator
}

// New creates a Writer for the configured backend.
func New(cfg *config.Config) (*Writer, error) {
	switch cfg.Script.Backend {
	case "", "ollama":
		client := ollama.NewClient(cfg.Script.OllamaHost, cfg.Script.OllamaModel, ollama.GenOptions{
			Temperature: cfg.Script.Temperature,
			TopP:        cfg.Script.TopP,
			NumPredict:  cfg.Script.MaxTokens,
		})
		return &Writer{cfg: cfg, gen: &ollamaGenerator{client: client}}, nil
	case "openai":
		gen, err := newOpenAIGenerator(&cfg.Script)
		if err != nil {
			return nil, err
		}
		return &Writer{cfg: cfg, gen: gen}, nil
	default:
		return nil, fmt.Errorf("unknown script backend %q", cfg.Script.Backend)
	}
}

// scriptPayload is the raw JSON shape the model must return.
type scriptPayload struct {
	Title        string    `json:"title" jsonschema_description:"Short curiosity-driven video title, under 80 characters"`
	Narration    string    `json:"narration" jsonschema_description:"Full spoken narration, 140-160 words of plain prose"`
	Description  string    `json:"description" jsonschema_description:"2-3 sentence YouTube description"`
	Hashtags     []string  `json:"hashtags" jsonschema_description:"5-8 hashtag strings"`
	Tags         []string  `json:"tags" jsonschema_description:"8-12 plain keyword strings"`
	ImagePrompts []string  `json:"image_prompts" jsonschema_description:"Exactly 8 vivid image generation prompts, one per scene"`
	SceneTiming  []float64 `json:"scene_timing" jsonschema_description:"Exactly 8 positive second counts, summing to 55-60"`
}

var scriptSchema = GenerateSchema[scriptPayload]()

// Run generates a validated script for the topic. A response that fails
// validation gets exactly one repair re-ask naming the violation; a second
// failure returns MalformedScriptError.
func (w *Writer) Run(ctx context.Context, topic string) (*types.Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}

	if og, ok := w.gen.(*ollamaGenerator); ok {
		if !og.client.Available(ctx) {
			return nil, fmt.Errorf("ollama not reachable at %s (is `ollama serve` running?)", w.cfg.Script.OllamaHost)
		}
	}

	log.Printf("[script] Generating script via %s for topic: %q", w.gen.Name(), topic)

	userPrompt := buildUserPrompt(topic)
	content, err := w.gen.CompleteJSON(ctx, systemPrompt, userPrompt, scriptSchema)
	if err != nil {
		return nil, fmt.Errorf("script generation: %w", err)
	}

	s, perr := w.parseScript(content)
	if perr != nil {
		log.Printf("[script] ⚠️  Response rejected (%s) — asking for a corrected script", perr.Reason)
		repair := userPrompt + fmt.Sprintf(
			"\n\nYour previous response was rejected: %s.\nRespond again with ONLY the corrected JSON object, nothing else.",
			perr.Reason,
		)
		content, err = w.gen.CompleteJSON(ctx, systemPrompt, repair, scriptSchema)
		if err != nil {
			return nil, fmt.Errorf("script repair ask: %w", err)
		}
		s, perr = w.parseScript(content)
		if perr != nil {
			return nil, perr
		}
	}

	log.Printf("[script] ✅ Script ready: %q (%d words, %d scenes, %.1fs)",
		s.Title, wordCount(s.Narration), len(s.ImagePrompts), timingSum(s.SceneTiming))
	return s, nil
}

func buildUserPrompt(topic string) string {
	return fmt.Sprintf("Create a YouTube Short script about: %s\n\nRespond ONLY with the JSON object.", topic)
}

// parseScript turns raw model output into a normalized, validated Script.
func (w *Writer) parseScript(content string) (*types.Script, *MalformedScriptError) {
	content = cleanJSON(content)

	var raw scriptPayload
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &MalformedScriptError{
			Reason: fmt.Sprintf("response is not valid JSON: %v", err),
			Raw:    truncate(content, 200),
		}
	}

	s := raw.toScript()
	if reason := validate(s, &w.cfg.Script); reason != "" {
		return nil, &MalformedScriptError{Reason: reason, Raw: truncate(content, 200)}
	}

	resizeScenes(s, w.cfg.Script.ImageCount)
	rescaleTiming(s, &w.cfg.Script)
	enrichPrompts(s, w.cfg.Script.ArtStyle)
	return s, nil
}

func (p scriptPayload) toScript() *types.Script {
	s := &types.Script{
		Title:       strings.TrimSpace(p.Title),
		Narration:   strings.TrimSpace(p.Narration),
		Description: strings.TrimSpace(p.Description),
		SceneTiming: p.SceneTiming,
	}
	for _, h := range p.Hashtags {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		s.Hashtags = append(s.Hashtags, h)
	}
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			s.Tags = append(s.Tags, t)
		}
	}
	for _, pr := range p.ImagePrompts {
		s.ImagePrompts = append(s.ImagePrompts, strings.TrimSpace(pr))
	}
	return s
}

// validate returns a human-readable rejection reason, or "" when the script
// satisfies the shape every downstream stage relies on.
func validate(s *types.Script, cfg *config.ScriptConfig) string {
	switch {
	case s.Title == "":
		return `missing or empty "title"`
	case s.Narration == "":
		return `missing or empty "narration"`
	case len(s.ImagePrompts) == 0:
		return `missing or empty "image_prompts"`
	case len(s.SceneTiming) == 0:
		return `missing or empty "scene_timing"`
	}

	if len(s.ImagePrompts) != len(s.SceneTiming) {
		return fmt.Sprintf("image_prompts and scene_timing lengths differ (%d vs %d)",
			len(s.ImagePrompts), len(s.SceneTiming))
	}

	for i, p := range s.ImagePrompts {
		if p == "" {
			return fmt.Sprintf("image_prompts[%d] is empty", i)
		}
	}

	for i, t := range s.SceneTiming {
		if t <= 0 {
			return fmt.Sprintf("scene_timing[%d] = %.2f is not positive", i, t)
		}
	}

	if wc := wordCount(s.Narration); wc < cfg.MinWords || wc > cfg.MaxWords {
		return fmt.Sprintf("narration is %d words, need %d-%d", wc, cfg.MinWords, cfg.MaxWords)
	}
	return ""
}

// Validate checks a user-supplied script (review edits, --script-file) against
// the same shape rules as generated ones. The scene count is not forced to the
// configured value here; only internal consistency is required.
func Validate(s *types.Script, cfg *config.ScriptConfig) error {
	if reason := validate(s, cfg); reason != "" {
		return &MalformedScriptError{Reason: reason}
	}
	return nil
}

// LoadFile reads and validates a pre-supplied script JSON file.
func LoadFile(path string, cfg *config.ScriptConfig) (*types.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script file: %w", err)
	}
	var s types.Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &MalformedScriptError{
			Reason: fmt.Sprintf("%s is not valid JSON: %v", path, err),
		}
	}
	if err := Validate(&s, cfg); err != nil {
		return nil, err
	}
	return &s, nil
}

// resizeScenes pads or trims prompts and timing to exactly count entries,
// preserving the total duration. Generated scripts always leave here with the
// configured scene count no matter what the model decided to return.
func resizeScenes(s *types.Script, count int) {
	if count <= 0 || len(s.ImagePrompts) == count {
		return
	}

	total := timingSum(s.SceneTiming)
	orig := len(s.ImagePrompts)

	if orig > count {
		s.ImagePrompts = s.ImagePrompts[:count]
	} else {
		for len(s.ImagePrompts) < count {
			s.ImagePrompts = append(s.ImagePrompts, s.ImagePrompts[len(s.ImagePrompts)%orig])
		}
	}

	per := total / float64(count)
	s.SceneTiming = make([]float64, count)
	for i := range s.SceneTiming {
		s.SceneTiming[i] = per
	}
	log.Printf("[script] Resized scenes %d → %d (total %.1fs kept)", orig, count, total)
}

// rescaleTiming scales scene_timing to the target duration when the model's
// sum falls outside the accepted band. Out-of-band sums are fixed, not
// rejected.
func rescaleTiming(s *types.Script, cfg *config.ScriptConfig) {
	sum := timingSum(s.SceneTiming)
	if sum >= cfg.MinTotalSec && sum <= cfg.MaxTotalSec {
		return
	}
	factor := cfg.TargetSec / sum
	for i := range s.SceneTiming {
		s.SceneTiming[i] *= factor
	}
	log.Printf("[script] scene_timing summed to %.1fs — rescaled to %.1fs", sum, cfg.TargetSec)
}

// enrichPrompts appends the configured art style to every image prompt.
func enrichPrompts(s *types.Script, style string) {
	if style == "" {
		return
	}
	for i, p := range s.ImagePrompts {
		if !strings.Contains(strings.ToLower(p), strings.ToLower(style)) {
			s.ImagePrompts[i] = p + ", " + style
		}
	}
}

// cleanJSON strips markdown fences if the model wraps its response in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func timingSum(t []float64) float64 {
	var sum float64
	for _, v := range t {
		sum += v
	}
	return sum
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ollamaGenerator adapts the Ollama client to the generator interface.
// Ollama's JSON mode does not take a schema; the prompt carries the contract.
type ollamaGenerator struct {
	client *ollama.Client
}

func (g *ollamaGenerator) Name() string { return "ollama (" + g.client.Model() + ")" }

func (g *ollamaGenerator) CompleteJSON(ctx context.Context, system, user string, _ any) (string, error) {
	return g.client.ChatJSON(ctx, system, user)
}
