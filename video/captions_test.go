package video

import (
	"strings"
	"testing"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

func stampRange(words ...string) []types.WordStamp {
	stamps := make([]types.WordStamp, len(words))
	for i, w := range words {
		stamps[i] = types.WordStamp{
			Word:  w,
			Start: float64(i) * 0.4,
			End:   float64(i+1) * 0.4,
		}
	}
	return stamps
}

func TestGroupWords(t *testing.T) {
	stamps := stampRange("the", "river", "fell", "from", "heaven", "onto", "his", "matted", "hair")
	phrases := GroupWords(stamps, 4)

	if len(phrases) != 3 {
		t.Fatalf("got %d phrases, want 3", len(phrases))
	}
	if phrases[0].Text != "the river fell from" {
		t.Errorf("phrase[0] = %q", phrases[0].Text)
	}
	if phrases[2].Text != "hair" {
		t.Errorf("phrase[2] = %q", phrases[2].Text)
	}

	if phrases[0].Start != 0 || phrases[0].End != 1.6 {
		t.Errorf("phrase[0] spans %.1f–%.1f, want 0.0–1.6", phrases[0].Start, phrases[0].End)
	}
	if phrases[1].Start != 1.6 {
		t.Errorf("phrase[1] starts at %.1f, want 1.6", phrases[1].Start)
	}
}

func TestGroupWordsSanitizes(t *testing.T) {
	stamps := []types.WordStamp{
		{Word: "{\\an8}om", Start: 0, End: 0.5},
		{Word: "shanti", Start: 0.5, End: 1.0},
	}
	phrases := GroupWords(stamps, 4)
	if len(phrases) != 1 {
		t.Fatalf("got %d phrases, want 1", len(phrases))
	}
	if strings.ContainsAny(phrases[0].Text, "{}\\") {
		t.Errorf("phrase contains ASS control characters: %q", phrases[0].Text)
	}
	if !strings.Contains(phrases[0].Text, "shanti") {
		t.Errorf("clean words lost: %q", phrases[0].Text)
	}
}

func TestGroupWordsMinimumDisplay(t *testing.T) {
	stamps := []types.WordStamp{{Word: "om", Start: 2.0, End: 2.02}}
	phrases := GroupWords(stamps, 4)
	if len(phrases) != 1 {
		t.Fatal("expected one phrase")
	}
	if phrases[0].End-phrases[0].Start < 0.1 {
		t.Errorf("phrase shown for %.3fs, want at least 0.1s", phrases[0].End-phrases[0].Start)
	}
}

func TestBuildASS(t *testing.T) {
	cfg := config.Default().Video.Captions
	phrases := []Phrase{
		{Text: "jai shri ram", Start: 0.3, End: 1.2},
		{Text: "har har mahadev", Start: 1.2, End: 2.75},
	}

	doc := BuildASS(phrases, &cfg, 1080, 1920)

	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Caption,DejaVu Sans,72,&H00FFFFFF,&H00000000,&H80000000,1,1,6,0,2,40,40,480",
		"Dialogue: 0,0:00:00.30,0:00:01.20,Caption,,0,0,0,,jai shri ram",
		"Dialogue: 0,0:00:01.20,0:00:02.75,Caption,,0,0,0,,har har mahadev",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestAssTime(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "0:00:00.00"},
		{3.5, "0:00:03.50"},
		{59.999, "0:01:00.00"},
		{61.25, "0:01:01.25"},
		{3599.994, "0:59:59.99"},
		{3600, "1:00:00.00"},
		{-1, "0:00:00.00"},
	}
	for _, c := range cases {
		if got := assTime(c.sec); got != c.want {
			t.Errorf("assTime(%v) = %q, want %q", c.sec, got, c.want)
		}
	}
}
