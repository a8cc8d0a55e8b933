package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"bhakti-shorts-pipeline/config"
	"bhakti-shorts-pipeline/types"
)

// hookKeywords boost a topic's score when present. These mark posts that
// tend to carry a retellable story rather than a discussion thread.
var hookKeywords = []string{
	"story", "legend", "katha", "miracle", "temple", "avatar",
	"mantra", "festival", "vrat", "scripture", "gita", "ramayana",
	"mahabharata", "puja", "darshan", "why", "meaning", "significance",
}

// Suggester mines devotional subreddits for video topic candidates.
type Suggester struct {
	cfg    *config.Config
	client *reddit.Client
	used   map[string]bool
}

func New(cfg *config.Config) (*Suggester, error) {
	client, err := reddit.NewReadonlyClient()
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Suggester{
		cfg:    cfg,
		client: client,
		used:   loadUsedTopics(cfg.Paths.UsedTopicsLog),
	}, nil
}

// Run fetches hot posts from the configured subreddits, scores and
// deduplicates them, and returns the best topic candidates.
func (s *Suggester) Run(ctx context.Context) ([]types.TopicSuggestion, error) {
	log.Println("[research] Scanning subreddits for topic candidates...")

	cutoff := time.Now().AddDate(0, 0, -s.cfg.Research.LookbackDays)
	var candidates []types.TopicSuggestion

	for _, sub := range s.cfg.Research.Subreddits {
		posts, _, err := s.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 50})
		if err != nil {
			log.Printf("[research] r/%s error: %v", sub, err)
			continue
		}

		found := 0
		for _, post := range posts {
			if post.Stickied || post.NSFW {
				continue
			}
			if post.Score < s.cfg.Research.MinScore {
				continue
			}
			if post.Created != nil && post.Created.Time.Before(cutoff) {
				continue
			}

			topic := cleanTitle(post.Title)
			if topic == "" || s.used[normalizeTopic(topic)] {
				continue
			}

			candidates = append(candidates, types.TopicSuggestion{
				Topic:     topic,
				Source:    "r/" + sub,
				SourceURL: "https://www.reddit.com" + post.Permalink,
				Score:     scoreTopic(post),
			})
			found++
		}
		log.Printf("[research] r/%s: %d candidate(s)", sub, found)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no topic candidates found — try lowering research.min_score")
	}

	top := selectTop(candidates, s.cfg.Research.MaxSuggestions)
	log.Printf("[research] ✅ %d suggestion(s) after scoring and dedup", len(top))
	return top, nil
}

// MarkUsed records a topic in the used-topics log so later runs skip it.
func (s *Suggester) MarkUsed(topic string) {
	s.used[normalizeTopic(topic)] = true

	keys := make([]string, 0, len(s.used))
	for k := range s.used {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data, _ := json.MarshalIndent(keys, "", "  ")
	_ = os.MkdirAll(filepath.Dir(s.cfg.Paths.UsedTopicsLog), 0755)
	_ = os.WriteFile(s.cfg.Paths.UsedTopicsLog, data, 0644)
}

// scoreTopic ranks a post by upvotes plus bonuses for story hooks, recency
// and enough self-text to feed a narration.
func scoreTopic(post *reddit.Post) int {
	score := post.Score

	lower := strings.ToLower(post.Title + " " + post.Body)
	for _, kw := range hookKeywords {
		if strings.Contains(lower, kw) {
			score += 50
		}
	}

	if post.Created != nil && time.Since(post.Created.Time) < 72*time.Hour {
		score += 200
	}

	if len(post.Body) > 500 {
		score += 75
	}
	if len(post.Body) > 1500 {
		score += 75
	}
	return score
}

// selectTop sorts by score, drops near-duplicate topics, and trims to max.
func selectTop(candidates []types.TopicSuggestion, max int) []types.TopicSuggestion {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	seen := make(map[string]bool)
	var top []types.TopicSuggestion
	for _, c := range candidates {
		key := normalizeTopic(c.Topic)
		if seen[key] {
			continue
		}
		seen[key] = true
		top = append(top, c)
		if max > 0 && len(top) == max {
			break
		}
	}
	return top
}

// cleanTitle strips reddit-isms (leading tags, surrounding quotes) so the
// title can be fed straight in as a topic.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if strings.HasPrefix(title, "[") {
		if end := strings.Index(title, "]"); end >= 0 {
			title = title[end+1:]
		}
	}
	title = strings.Trim(title, "\"“” ")
	return strings.Join(strings.Fields(title), " ")
}

func normalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

func loadUsedTopics(path string) map[string]bool {
	used := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return used
	}
	var topics []string
	if err := json.Unmarshal(data, &topics); err != nil {
		return used
	}
	for _, t := range topics {
		used[t] = true
	}
	return used
}
