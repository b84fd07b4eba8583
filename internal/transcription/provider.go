package transcription

import (
	"context"
	"strings"

	"cueforge/internal/subtitles"
)

// Capabilities describes what a backend returns.
type Capabilities struct {
	// NativeTiming means Result.CueText carries timed cues.
	NativeTiming bool
	// WordTimestamps means Result.Words is populated.
	WordTimestamps bool
	// Logprobs means confidence values are reported, either on words or in
	// Result.Logprobs.
	Logprobs bool
	// Prompt means Request.Prompt is honored.
	Prompt bool
	// MaxFileBytes is the largest upload accepted; zero means unlimited.
	MaxFileBytes int64
}

// Request is a single file submission.
type Request struct {
	FilePath string
	Language string
	// Prompt seeds the model with preceding context for continuity.
	Prompt string
	// Model overrides the backend's configured model when set.
	Model string
}

// Result is what a backend produced for one file. Times are relative to the
// start of the submitted file.
type Result struct {
	CueText  string
	Words    []subtitles.Word
	Text     string
	Logprobs []float64
	// Averages are per-segment average logprobs, such as whisper-1's
	// avg_logprob. They summarize many tokens and are not token values.
	Averages []SpanLogprob
	// Duration is the audio length reported by the backend, zero if unknown.
	Duration float64
}

// SpanLogprob is an average logprob over a stretch of the submitted file.
type SpanLogprob struct {
	Start   float64
	End     float64
	Logprob float64
}

// Provider is a speech-to-text backend.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// PlainText returns the result's transcript without timing, falling back to
// the cue text when the backend returned no separate text.
func (r Result) PlainText() string {
	if r.Text != "" {
		return r.Text
	}
	if r.CueText == "" {
		return ""
	}
	segs := subtitles.ParseCues(r.CueText)
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return subtitles.Flatten(strings.Join(parts, " "))
}
