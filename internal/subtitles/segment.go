package subtitles

import (
	"strings"
	"unicode/utf8"
)

// Segment is one subtitle display unit. Text may contain "\n" line breaks.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Duration returns End-Start, which is negative for corrupted segments.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Lines splits the text on line breaks.
func (s Segment) Lines() []string {
	if s.Text == "" {
		return nil
	}
	return strings.Split(s.Text, "\n")
}

// Word carries provider word-level timing. Logprob is nil when the provider
// does not report confidence.
type Word struct {
	Word    string   `json:"word"`
	Start   float64  `json:"start"`
	End     float64  `json:"end"`
	Logprob *float64 `json:"logprob,omitempty"`
}

// TextLength counts the visible characters of text, excluding line breaks.
func TextLength(text string) int {
	return utf8.RuneCountInString(strings.ReplaceAll(text, "\n", ""))
}

// Flatten collapses line breaks and runs of whitespace to single spaces.
func Flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Clone returns an independent copy of segments.
func Clone(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}
