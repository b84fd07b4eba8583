package optimizer

import (
	"math"
	"strings"

	"cueforge/internal/subtitles"
)

// shape drops inverted segments, stretches short ones, splits ones whose text
// needs more than the maximum duration, and trims ones displayed too long.
func shape(segments []subtitles.Segment, policy Policy, res *Result) []subtitles.Segment {
	p := policy.Profile
	valid := make([]subtitles.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.End < seg.Start || math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			res.Dropped++
			continue
		}
		valid = append(valid, seg)
	}

	out := make([]subtitles.Segment, 0, len(valid))
	for i, seg := range valid {
		chars := subtitles.TextLength(subtitles.Flatten(seg.Text))
		required := float64(chars) / p.TargetCPS

		if required > p.MaxDuration || chars > p.MaxLines*p.MaxCPL {
			pieces := splitSegment(seg, policy)
			if len(pieces) > 1 {
				res.Split++
			}
			out = append(out, pieces...)
			continue
		}

		if !policy.TrustNativeTiming {
			minimum := math.Min(math.Max(required, p.IdealMinDuration), p.MaxDuration)
			if seg.Duration() < minimum {
				if len(out) > 0 {
					extendPrevious(&out[len(out)-1], seg, p.MaxDuration, p.MinGap)
				}
				limit := math.Inf(1)
				if i+1 < len(valid) {
					limit = valid[i+1].Start - p.MinGap
				}
				target := math.Min(seg.Start+minimum, limit)
				if target > seg.End {
					seg.End = target
					res.Extended++
				}
			}
		}

		if seg.Duration() > p.MaxDuration {
			seg.End = seg.Start + p.MaxDuration
			res.Trimmed++
		}
		out = append(out, seg)
	}
	return out
}

// extendPrevious closes a small gap before a short cue by stretching the
// previous cue, as long as that cue stays within its own duration budget.
func extendPrevious(prev *subtitles.Segment, cur subtitles.Segment, maxDuration, minGap float64) {
	gap := cur.Start - prev.End
	if gap <= minGap || gap >= extendPreviousMaxGap {
		return
	}
	target := cur.Start - minGap
	if target-prev.Start > maxDuration {
		return
	}
	prev.End = target
}

// splitSegment breaks seg into word groups that can each be read within the
// maximum duration and fit the line budget. Time is shared out by character
// count and each piece is capped at the maximum duration.
func splitSegment(seg subtitles.Segment, policy Policy) []subtitles.Segment {
	p := policy.Profile
	words := strings.Fields(seg.Text)
	if len(words) == 0 {
		return []subtitles.Segment{capDuration(seg, p.MaxDuration)}
	}
	budget := math.Min(p.MaxDuration*p.TargetCPS, float64(p.MaxLines*p.MaxCPL))

	var groups []string
	var current []string
	currentLen := 0
	for _, w := range words {
		wlen := subtitles.TextLength(w)
		next := currentLen + wlen
		if len(current) > 0 {
			next++
		}
		if len(current) > 0 && float64(next) > budget {
			groups = append(groups, strings.Join(current, " "))
			current = nil
			next = wlen
		}
		current = append(current, w)
		currentLen = next
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, " "))
	}
	if len(groups) == 1 {
		seg.Text = groups[0]
		return []subtitles.Segment{capDuration(seg, p.MaxDuration)}
	}

	total := 0
	for _, g := range groups {
		total += subtitles.TextLength(g)
	}
	duration := seg.Duration()
	out := make([]subtitles.Segment, 0, len(groups))
	cursor := seg.Start
	for i, g := range groups {
		share := duration * float64(subtitles.TextLength(g)) / float64(total)
		end := cursor + share
		if i == len(groups)-1 {
			end = seg.End
		}
		piece := subtitles.Segment{Start: cursor, End: end, Text: g, Speaker: seg.Speaker}
		out = append(out, capDuration(piece, p.MaxDuration))
		cursor = end
	}
	return out
}

func capDuration(seg subtitles.Segment, maxDuration float64) subtitles.Segment {
	if seg.Duration() > maxDuration {
		seg.End = seg.Start + maxDuration
	}
	return seg
}
