package quality

import (
	"math"
	"strings"

	"cueforge/internal/language"
	"cueforge/internal/subtitles"
)

// File-level multipliers and the share of segments that triggers them.
var fileRules = []struct {
	category  Category
	threshold float64
	factor    float64
	reason    string
}{
	{CategoryReadingSpeed, 0.20, 0.90, "more than 20% of segments above target reading speed"},
	{CategoryLineLength, 0.10, 0.95, "more than 10% of segments over line length"},
}

const (
	overlapShareThreshold = 0.05
	overlapFactor         = 0.90
	lowSegmentScore       = 40.0
	lowSegmentFactor      = 0.95
)

// Score evaluates segments for lang. logprobs, when non-nil, holds token
// log-probabilities per segment index.
func Score(segments []subtitles.Segment, lang string, logprobs [][]float64, opts Options) Report {
	profile := language.ProfileFor(lang)
	report := Report{
		Language:     profile.Code,
		SegmentCount: len(segments),
		QualityLevel: LevelFailing,
	}
	if report.Language == "" {
		report.Language = strings.ToLower(strings.TrimSpace(lang))
	}
	if len(segments) == 0 {
		report.Categories = summarize(nil, 0)
		return report
	}

	c := checker{profile: profile, opts: opts.withDefaults(), diarized: isDiarized(segments)}
	scores := make([]SegmentScore, len(segments))
	overlapping := 0
	var cpsSum float64
	for i, seg := range segments {
		lines := seg.Lines()
		duration := seg.Duration()
		chars := subtitles.TextLength(seg.Text)
		var cps float64
		if duration > 0 {
			cps = float64(chars) / duration
		}
		cpsSum += cps

		var vs []Violation
		vs = append(vs, c.content(seg)...)
		if chars > 0 && duration > 0 {
			vs = append(vs, c.readingSpeed(cps)...)
		}
		vs = append(vs, c.lineLength(lines)...)
		vs = append(vs, c.lineCount(lines)...)
		vs = append(vs, c.duration(duration)...)
		vs = append(vs, c.lineBreaks(lines)...)
		vs = append(vs, c.lineBalance(lines)...)
		if i+1 < len(segments) {
			gapViolations := c.gap(seg, segments[i+1])
			for _, v := range gapViolations {
				if v.Severity == SeverityCritical {
					overlapping++
				}
			}
			vs = append(vs, gapViolations...)
		}
		var prev *subtitles.Segment
		if i > 0 {
			prev = &segments[i-1]
		}
		vs = append(vs, c.speaker(prev, seg, lines)...)
		var tokens, averages []float64
		if i < len(logprobs) {
			tokens = logprobs[i]
		}
		if i < len(c.opts.Averages) {
			averages = c.opts.Averages[i]
		}
		vs = append(vs, c.confidence(tokens, averages)...)

		total := 0.0
		for _, v := range vs {
			total += v.Deduction
		}
		scores[i] = SegmentScore{
			Index:      i,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			CPS:        round1(cps),
			Score:      math.Max(0, 100-total),
			Violations: vs,
		}
	}

	report.Segments = scores
	report.AverageCPS = round1(cpsSum / float64(len(segments)))
	report.TotalDuration, report.WeightedScore = weightedMean(segments, scores)
	report.Categories = summarize(scores, len(segments))

	score := report.WeightedScore
	n := float64(len(segments))
	for _, rule := range fileRules {
		if float64(report.Category(rule.category).SegmentsAffected)/n > rule.threshold {
			score *= rule.factor
			report.Multipliers = append(report.Multipliers, Multiplier{Reason: rule.reason, Factor: rule.factor})
		}
	}
	if float64(overlapping)/n > overlapShareThreshold {
		score *= overlapFactor
		report.Multipliers = append(report.Multipliers, Multiplier{Reason: "more than 5% of segments overlap", Factor: overlapFactor})
	}
	for _, s := range scores {
		if s.Score < lowSegmentScore {
			score *= lowSegmentFactor
			report.Multipliers = append(report.Multipliers, Multiplier{Reason: "at least one segment scored below 40", Factor: lowSegmentFactor})
			break
		}
	}

	report.WeightedScore = round1(report.WeightedScore)
	report.Score = round1(math.Max(0, math.Min(100, score)))
	report.QualityLevel = Level(report.Score)
	return report
}

// weightedMean weights each segment by its share of the total duration.
// Tracks with no positive duration fall back to a plain mean.
func weightedMean(segments []subtitles.Segment, scores []SegmentScore) (float64, float64) {
	var total float64
	for _, seg := range segments {
		total += math.Max(0, seg.Duration())
	}
	var sum float64
	if total <= 0 {
		for _, s := range scores {
			sum += s.Score
		}
		return 0, sum / float64(len(scores))
	}
	for i, seg := range segments {
		sum += scores[i].Score * math.Max(0, seg.Duration()) / total
	}
	return total, sum
}

func summarize(scores []SegmentScore, n int) []CategorySummary {
	byCat := make(map[Category]*CategorySummary, len(categoryOrder))
	for _, c := range categoryOrder {
		byCat[c] = &CategorySummary{Category: c}
	}
	for _, s := range scores {
		seen := make(map[Category]bool)
		for _, v := range s.Violations {
			sum := byCat[v.Category]
			sum.Violations++
			sum.TotalDeduction += v.Deduction
			if !seen[v.Category] {
				sum.SegmentsAffected++
				seen[v.Category] = true
			}
		}
	}
	out := make([]CategorySummary, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		sum := byCat[c]
		if n > 0 {
			sum.Percent = round1(float64(sum.SegmentsAffected) / float64(n) * 100)
		}
		out = append(out, *sum)
	}
	return out
}

func isDiarized(segments []subtitles.Segment) bool {
	for _, seg := range segments {
		if seg.Speaker != "" {
			return true
		}
	}
	return false
}
