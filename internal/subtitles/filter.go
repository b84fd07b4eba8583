package subtitles

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"cueforge/internal/logging"
)

// Removal reasons reported by FilterHallucinations.
const (
	ReasonIsolatedHallucination = "isolated_hallucination"
	ReasonRepeatedHallucination = "repeated_hallucination"
	ReasonMusicSymbols          = "music_symbols"
	ReasonTrailingHallucination = "trailing_hallucination"
	ReasonTrailingMusic         = "trailing_music"
)

const (
	isolationGap     = 30.0
	repeatGap        = 10.0
	repeatRunLength  = 3
	trailingWindow   = 300.0
	noNextSegmentGap = 1e9
)

// Removal records a single segment dropped by post-transcription filtering.
type Removal struct {
	Segment Segment
	Reason  string
}

// FilterResult holds the surviving segments and everything removed.
type FilterResult struct {
	Segments []Segment
	Removals []Removal
}

// Known speech-model hallucination phrases (normalized form).
var hallucinationPhrases = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"please subscribe":       true,
	"like and subscribe":     true,
	"well be right back":     true,
	"bye":                    true,
	"bye bye":                true,
	"see you next time":      true,
	"see you later":          true,
	"subtitles by":           true,
}

// FilterHallucinations removes speech-model artifacts from segments. The
// first pass drops isolated or repeated known phrases and isolated music-only
// cues anywhere in the track. The second pass sweeps the final five minutes of
// long recordings, where credits music commonly produces such phrases, without
// requiring isolation.
func FilterHallucinations(segments []Segment, totalSeconds float64) FilterResult {
	var removals []Removal

	remaining, isolated := removeIsolatedHallucinations(segments)
	removals = append(removals, isolated...)

	remaining, trailing := sweepTrailingHallucinations(remaining, totalSeconds)
	removals = append(removals, trailing...)

	return FilterResult{Segments: remaining, Removals: removals}
}

func removeIsolatedHallucinations(segments []Segment) ([]Segment, []Removal) {
	if len(segments) == 0 {
		return segments, nil
	}

	remove := make([]bool, len(segments))
	var removals []Removal

	markRepeatedHallucinations(segments, remove, &removals)

	for i := range segments {
		if remove[i] {
			continue
		}
		isolated := gapToPrevious(segments, i) >= isolationGap && gapToNext(segments, i) >= isolationGap
		if !isolated {
			continue
		}
		if hallucinationPhrases[normalizeText(segments[i].Text)] {
			remove[i] = true
			removals = append(removals, Removal{Segment: segments[i], Reason: ReasonIsolatedHallucination})
			continue
		}
		if isMusicCue(segments[i].Text) {
			remove[i] = true
			removals = append(removals, Removal{Segment: segments[i], Reason: ReasonMusicSymbols})
		}
	}

	kept := make([]Segment, 0, len(segments))
	for i, seg := range segments {
		if !remove[i] {
			kept = append(kept, seg)
		}
	}
	return kept, removals
}

// markRepeatedHallucinations marks runs of identical text where every gap
// exceeds repeatGap seconds.
func markRepeatedHallucinations(segments []Segment, remove []bool, removals *[]Removal) {
	i := 0
	for i < len(segments) {
		norm := normalizeText(segments[i].Text)
		if norm == "" {
			i++
			continue
		}
		runEnd := i + 1
		for runEnd < len(segments) {
			if normalizeText(segments[runEnd].Text) != norm {
				break
			}
			if segments[runEnd].Start-segments[runEnd-1].End <= repeatGap {
				break
			}
			runEnd++
		}
		if runEnd-i >= repeatRunLength {
			for j := i; j < runEnd; j++ {
				remove[j] = true
				*removals = append(*removals, Removal{Segment: segments[j], Reason: ReasonRepeatedHallucination})
			}
		}
		i = runEnd
	}
}

func gapToPrevious(segments []Segment, i int) float64 {
	if i == 0 {
		return segments[i].Start
	}
	return segments[i].Start - segments[i-1].End
}

func gapToNext(segments []Segment, i int) float64 {
	if i >= len(segments)-1 {
		return noNextSegmentGap
	}
	return segments[i+1].Start - segments[i].End
}

// isMusicCue reports whether text is only music notation and whitespace.
func isMusicCue(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r == '¶', r == '♪', r == '♫', r == '*':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

func sweepTrailingHallucinations(segments []Segment, totalSeconds float64) ([]Segment, []Removal) {
	if totalSeconds < 2*trailingWindow || len(segments) == 0 {
		return segments, nil
	}
	threshold := totalSeconds - trailingWindow

	var removals []Removal
	kept := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Start < threshold {
			kept = append(kept, seg)
			continue
		}
		if hallucinationPhrases[normalizeText(seg.Text)] {
			removals = append(removals, Removal{Segment: seg, Reason: ReasonTrailingHallucination})
			continue
		}
		if isMusicCue(seg.Text) {
			removals = append(removals, Removal{Segment: seg, Reason: ReasonTrailingMusic})
			continue
		}
		kept = append(kept, seg)
	}
	return kept, removals
}

var textNormalizeRe = regexp.MustCompile(`[^a-z0-9\s]`)

// normalizeText lowercases and strips punctuation for phrase comparison.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = textNormalizeRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// LogFilterSummary logs filter totals at INFO and individual removals at DEBUG.
func LogFilterSummary(ctx context.Context, logger *slog.Logger, result FilterResult) {
	if logger == nil || len(result.Removals) == 0 {
		return
	}
	reasons := make(map[string]int)
	for _, r := range result.Removals {
		reasons[r.Reason]++
	}
	attrs := []slog.Attr{
		logging.String(logging.FieldEventType, "hallucination_filter_applied"),
		logging.Int("segments_removed", len(result.Removals)),
		logging.Int("segments_remaining", len(result.Segments)),
	}
	for reason, count := range reasons {
		attrs = append(attrs, logging.Int("removed_"+reason, count))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "hallucination post-filter applied", attrs...)

	for _, r := range result.Removals {
		logger.DebugContext(ctx, "hallucination filter removed segment",
			logging.String("segment_text", r.Segment.Text),
			logging.String("reason", r.Reason),
			logging.Float64("start", r.Segment.Start),
			logging.Float64("end", r.Segment.End),
		)
	}
}
