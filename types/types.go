package types

// Script is the full generated script for one video.
// image_prompts and scene_timing always have the same length;
// scene_timing values are seconds and sum to roughly the target video duration.
type Script struct {
	Title        string    `json:"title"`
	Narration    string    `json:"narration"`
	Description  string    `json:"description"`
	Hashtags     []string  `json:"hashtags"`
	Tags         []string  `json:"tags"`
	ImagePrompts []string  `json:"image_prompts"`
	SceneTiming  []float64 `json:"scene_timing"`
}

// WordStamp marks when one spoken word begins and ends in the narration audio.
type WordStamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SeriesOutline is the planned topic list for a multi-part series.
type SeriesOutline struct {
	Theme string   `json:"theme"`
	Parts []string `json:"parts"`
}

// TopicSuggestion is one ranked topic candidate from the research stage.
type TopicSuggestion struct {
	Topic     string `json:"topic"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
	Score     int    `json:"score"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID          string   `json:"run_id"`
	Topic          string   `json:"topic"`
	StartedAt      string   `json:"started_at"`
	CompletedAt    string   `json:"completed_at"`
	ScriptFile     string   `json:"script_file"`
	AudioFile      string   `json:"audio_file"`
	VoiceUsed      string   `json:"voice_used"`
	TimestampsFile string   `json:"timestamps_file"`
	ImageFiles     []string `json:"image_files"`
	VideoFile      string   `json:"video_file"`
	Error          string   `json:"error,omitempty"`
}
