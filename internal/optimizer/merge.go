package optimizer

import "cueforge/internal/subtitles"

// mergeShort folds a cue shorter than mergeMaxDuration into its successor
// when the gap between them is under mergeMaxGap. Merged text is joined with
// a line break. The merged cue keeps chaining, so runs of tiny cues collapse.
func mergeShort(segments []subtitles.Segment, policy Policy, res *Result) []subtitles.Segment {
	if len(segments) == 0 {
		return segments
	}
	p := policy.Profile
	out := make([]subtitles.Segment, 0, len(segments))
	cur := segments[0]
	for _, next := range segments[1:] {
		if canMerge(cur, next, p.MaxDuration, p.MaxLines*p.MaxCPL) {
			cur.End = max(cur.End, next.End)
			cur.Text = joinText(cur.Text, next.Text)
			if cur.Speaker == "" {
				cur.Speaker = next.Speaker
			}
			res.Merged++
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func canMerge(cur, next subtitles.Segment, maxDuration float64, maxChars int) bool {
	if cur.Duration() >= mergeMaxDuration {
		return false
	}
	if next.Start-cur.End >= mergeMaxGap {
		return false
	}
	if cur.Speaker != "" && next.Speaker != "" && cur.Speaker != next.Speaker {
		return false
	}
	if max(cur.End, next.End)-cur.Start > maxDuration {
		return false
	}
	return subtitles.TextLength(joinText(cur.Text, next.Text)) <= maxChars
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
