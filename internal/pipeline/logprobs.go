package pipeline

import (
	"sort"

	"cueforge/internal/subtitles"
	"cueforge/internal/transcription"
)

// attributeLogprobs maps provider confidence onto the final segments. Words
// that carry a logprob land in the segment containing their midpoint. Untimed
// token logprobs are spread over the segments of their chunk in proportion to
// each segment's text length, preserving token order.
func attributeLogprobs(segments []subtitles.Segment, words []subtitles.Word, tokens []tokenSpan) [][]float64 {
	if len(segments) == 0 {
		return nil
	}
	out := make([][]float64, len(segments))
	found := false

	for _, w := range words {
		if w.Logprob == nil {
			continue
		}
		if i := segmentAt(segments, (w.Start+w.End)/2); i >= 0 {
			out[i] = append(out[i], *w.Logprob)
			found = true
		}
	}

	for _, span := range tokens {
		first, last := -1, -1
		total := 0
		for i, seg := range segments {
			mid := (seg.Start + seg.End) / 2
			if mid < span.start || mid >= span.end {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
			total += subtitles.TextLength(seg.Text)
		}
		if first < 0 || total == 0 {
			continue
		}
		n := len(span.logprobs)
		consumed, cum := 0, 0
		for i := first; i <= last; i++ {
			cum += subtitles.TextLength(segments[i].Text)
			upto := n * cum / total
			if i == last {
				upto = n
			}
			if upto > consumed {
				out[i] = append(out[i], span.logprobs[consumed:upto]...)
				consumed = upto
				found = true
			}
		}
	}

	if !found {
		return nil
	}
	return out
}

// attributeAverages assigns each segment-average logprob, once, to the final
// segment containing the middle of its span.
func attributeAverages(segments []subtitles.Segment, spans []transcription.SpanLogprob) [][]float64 {
	if len(segments) == 0 || len(spans) == 0 {
		return nil
	}
	out := make([][]float64, len(segments))
	found := false
	for _, span := range spans {
		if i := segmentAt(segments, (span.Start+span.End)/2); i >= 0 {
			out[i] = append(out[i], span.Logprob)
			found = true
		}
	}
	if !found {
		return nil
	}
	return out
}

// segmentAt returns the index of the segment containing t, or the nearest
// preceding one; -1 when t is before the first segment.
func segmentAt(segments []subtitles.Segment, t float64) int {
	i := sort.Search(len(segments), func(i int) bool { return segments[i].Start > t })
	return i - 1
}
