package video

import (
	"fmt"
	"math"
	"os"
	"strings"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

// Phrase is one on-screen caption chunk spanning the words it contains.
type Phrase struct {
	Text  string
	Start float64
	End   float64
}

// GroupWords folds word timestamps into caption phrases of up to perLine
// words. Each phrase spans from its first word's start to its last word's
// end.
func GroupWords(stamps []types.WordStamp, perLine int) []Phrase {
	if perLine < 1 {
		perLine = 4
	}

	var phrases []Phrase
	for i := 0; i < len(stamps); i += perLine {
		end := i + perLine
		if end > len(stamps) {
			end = len(stamps)
		}
		chunk := stamps[i:end]

		words := make([]string, 0, len(chunk))
		for _, w := range chunk {
			if t := sanitizeCaption(w.Word); t != "" {
				words = append(words, t)
			}
		}
		if len(words) == 0 {
			continue
		}

		p := Phrase{
			Text:  strings.Join(words, " "),
			Start: chunk[0].Start,
			End:   chunk[len(chunk)-1].End,
		}
		if p.End-p.Start < 0.1 {
			p.End = p.Start + 0.1
		}
		phrases = append(phrases, p)
	}
	return phrases
}

// sanitizeCaption strips characters that ASS would interpret as override
// tags or line breaks.
func sanitizeCaption(word string) string {
	word = strings.NewReplacer("{", "", "}", "", "\\", "", "\n", " ").Replace(word)
	return strings.TrimSpace(word)
}

// BuildASS renders the phrases as an ASS subtitle document sized to the
// video frame. White text, thick dark outline, anchored in the lower third.
func BuildASS(phrases []Phrase, cfg *config.CaptionsConfig, width, height int) string {
	// Alignment 2 is bottom-center; MarginV lifts it to the configured
	// vertical position.
	marginV := int(float64(height) * (1 - cfg.VerticalPos))

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", width)
	fmt.Fprintf(&b, "PlayResY: %d\n", height)
	b.WriteString("WrapStyle: 0\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&b, "Style: Caption,%s,%d,&H00FFFFFF,&H00000000,&H80000000,1,1,%d,0,2,40,40,%d\n\n",
		cfg.Font, cfg.FontSize, cfg.OutlineWidth, marginV)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, p := range phrases {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(p.Start), assTime(p.End), p.Text)
	}
	return b.String()
}

// WriteASS writes the caption document for the phrases to path.
func WriteASS(phrases []Phrase, cfg *config.CaptionsConfig, width, height int, path string) error {
	return os.WriteFile(path, []byte(BuildASS(phrases, cfg, width, height)), 0644)
}

// assTime formats seconds as H:MM:SS.cc, the ASS timestamp layout.
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	whole := int(sec)
	cs := int(math.Round((sec - float64(whole)) * 100))
	if cs == 100 {
		whole++
		cs = 0
	}
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
