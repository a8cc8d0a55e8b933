package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"bhakti-shorts-pipeline/types"
)

const outlineSystemPrompt = `You plan multi-part devotional YouTube Shorts series about Sanatan Dharma. Given a theme and a part count, you split the theme into that many self-contained episode topics that build on each other in order.

You MUST respond with ONLY a valid JSON object of the form:
{"parts": ["episode topic 1", "episode topic 2", ...]}

Each topic is one line, specific enough to carry a 60-second video on its own.`

type outlinePayload struct {
	Parts []string `json:"parts" jsonschema_description:"Ordered list of one-line episode topics, one per part"`
}

var outlineSchema = GenerateSchema[outlinePayload]()

// Outline asks the LLM to split a series theme into per-part topics.
func (w *Writer) Outline(ctx context.Context, theme string, parts int) (*types.SeriesOutline, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("series theme is empty")
	}
	if parts < 2 {
		return nil, fmt.Errorf("a series needs at least 2 parts, got %d", parts)
	}

	log.Printf("[script] Planning a %d-part series: %q", parts, theme)

	userPrompt := fmt.Sprintf("Theme: %s\nParts: %d\n\nRespond ONLY with the JSON object.", theme, parts)
	content, err := w.gen.CompleteJSON(ctx, outlineSystemPrompt, userPrompt, outlineSchema)
	if err != nil {
		return nil, fmt.Errorf("series outline: %w", err)
	}

	outline, perr := parseOutline(content, theme, parts)
	if perr != nil {
		log.Printf("[script] ⚠️  Outline rejected (%s) — asking for a corrected outline", perr.Reason)
		repair := userPrompt + fmt.Sprintf(
			"\n\nYour previous response was rejected: %s.\nRespond again with ONLY the corrected JSON object.",
			perr.Reason,
		)
		content, err = w.gen.CompleteJSON(ctx, outlineSystemPrompt, repair, outlineSchema)
		if err != nil {
			return nil, fmt.Errorf("series outline repair ask: %w", err)
		}
		outline, perr = parseOutline(content, theme, parts)
		if perr != nil {
			return nil, perr
		}
	}

	for i, p := range outline.Parts {
		log.Printf("[script]   Part %d: %s", i+1, p)
	}
	return outline, nil
}

func parseOutline(content, theme string, parts int) (*types.SeriesOutline, *MalformedScriptError) {
	content = cleanJSON(content)

	var raw outlinePayload
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &MalformedScriptError{
			Reason: fmt.Sprintf("outline is not valid JSON: %v", err),
			Raw:    truncate(content, 200),
		}
	}

	var topics []string
	for _, p := range raw.Parts {
		if p = strings.TrimSpace(p); p != "" {
			topics = append(topics, p)
		}
	}

	if len(topics) < parts {
		return nil, &MalformedScriptError{
			Reason: fmt.Sprintf("outline has %d parts, need %d", len(topics), parts),
			Raw:    truncate(content, 200),
		}
	}
	return &types.SeriesOutline{Theme: theme, Parts: topics[:parts]}, nil
}

// PartTopic builds the generation topic for one part, carrying the earlier
// parts' topics so the model does not retell them.
func PartTopic(o *types.SeriesOutline, i int) string {
	if i == 0 {
		return fmt.Sprintf("%s (part 1 of a %d-part series about %s)", o.Parts[0], len(o.Parts), o.Theme)
	}
	prev := strings.Join(o.Parts[:i], "; ")
	return fmt.Sprintf("%s (part %d of a series about %s; earlier parts already covered: %s — continue the story, do not repeat them)",
		o.Parts[i], i+1, o.Theme, prev)
}
