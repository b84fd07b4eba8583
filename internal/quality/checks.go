package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"cueforge/internal/language"
	"cueforge/internal/linebreak"
	"cueforge/internal/subtitles"
)

const gapEpsilon = 1e-6

type checker struct {
	profile  language.Profile
	opts     Options
	diarized bool
}

func (c checker) content(seg subtitles.Segment) []Violation {
	if strings.TrimSpace(seg.Text) != "" {
		return nil
	}
	return []Violation{{CategoryContent, SeverityCritical, "empty subtitle text", 50}}
}

func (c checker) readingSpeed(cps float64) []Violation {
	p := c.profile
	switch {
	case cps > p.MaxCPS:
		return []Violation{{CategoryReadingSpeed, SeverityHigh,
			fmt.Sprintf("%.1f CPS exceeds maximum %.0f", cps, p.MaxCPS), 30}}
	case cps <= p.TargetCPS:
		return nil
	}
	excess := cps - p.TargetCPS
	switch {
	case excess <= 1:
		return []Violation{{CategoryReadingSpeed, SeverityLow,
			fmt.Sprintf("%.1f CPS slightly above target %.0f", cps, p.TargetCPS), 5}}
	case excess <= 3:
		return []Violation{{CategoryReadingSpeed, SeverityMedium,
			fmt.Sprintf("%.1f CPS above target %.0f", cps, p.TargetCPS), 10}}
	default:
		return []Violation{{CategoryReadingSpeed, SeverityMedium,
			fmt.Sprintf("%.1f CPS well above target %.0f", cps, p.TargetCPS), 15}}
	}
}

func (c checker) lineLength(lines []string) []Violation {
	var out []Violation
	for i, line := range lines {
		excess := utf8.RuneCountInString(line) - c.profile.MaxCPL
		if excess <= 0 {
			continue
		}
		var deduction float64
		severity := SeverityLow
		switch {
		case excess <= 5:
			deduction = 3 * float64(excess)
		case excess <= 10:
			deduction = 15 + float64(excess-5)
			severity = SeverityMedium
		default:
			deduction = 20
			severity = SeverityHigh
		}
		out = append(out, Violation{CategoryLineLength, severity,
			fmt.Sprintf("line %d is %d characters over the %d limit", i+1, excess, c.profile.MaxCPL), deduction})
	}
	return out
}

func (c checker) lineCount(lines []string) []Violation {
	maxLines := c.profile.MaxLines
	switch {
	case len(lines) > maxLines+1:
		return []Violation{{CategoryLineCount, SeverityHigh,
			fmt.Sprintf("%d lines exceeds maximum %d", len(lines), maxLines), 30}}
	case len(lines) == maxLines+1:
		return []Violation{{CategoryLineCount, SeverityMedium,
			fmt.Sprintf("%d lines exceeds maximum %d", len(lines), maxLines), 15}}
	}
	return nil
}

func (c checker) duration(d float64) []Violation {
	p := c.profile
	switch {
	case d < p.MinDuration:
		return []Violation{{CategoryDuration, SeverityMedium,
			fmt.Sprintf("duration %.2fs below minimum %.2fs", d, p.MinDuration), 15}}
	case d < p.IdealMinDuration:
		return []Violation{{CategoryDuration, SeverityLow,
			fmt.Sprintf("duration %.2fs below ideal minimum %.2fs", d, p.IdealMinDuration), 5}}
	case d > p.MaxDuration+1:
		return []Violation{{CategoryDuration, SeverityMedium,
			fmt.Sprintf("duration %.2fs well above maximum %.2fs", d, p.MaxDuration), 15}}
	case d > p.MaxDuration:
		return []Violation{{CategoryDuration, SeverityLow,
			fmt.Sprintf("duration %.2fs above maximum %.2fs", d, p.MaxDuration), 5}}
	}
	return nil
}

func (c checker) lineBreaks(lines []string) []Violation {
	if c.profile.UsesCharacterBreaks() {
		return nil
	}
	var out []Violation
	for i := 0; i+1 < len(lines); i++ {
		last := lastWord(lines[i])
		s := linebreak.Analyze(last, firstWord(lines[i+1]), c.profile.Code)
		switch {
		case s.EndsArticle:
			out = append(out, Violation{CategoryLineBreaking, SeverityMedium,
				fmt.Sprintf("line %d ends with article %q", i+1, last), 10})
		case s.EndsNegation:
			out = append(out, Violation{CategoryLineBreaking, SeverityMedium,
				fmt.Sprintf("line %d ends with negation %q", i+1, last), 10})
		case s.EndsAuxiliary:
			out = append(out, Violation{CategoryLineBreaking, SeverityLow,
				fmt.Sprintf("line %d ends with auxiliary %q", i+1, last), 8})
		}
	}
	return out
}

func (c checker) lineBalance(lines []string) []Violation {
	if len(lines) != 2 || (hasDash(lines[0]) && hasDash(lines[1])) {
		return nil
	}
	a := utf8.RuneCountInString(lines[0])
	b := utf8.RuneCountInString(lines[1])
	longer := max(a, b)
	if longer == 0 {
		return nil
	}
	ratio := float64(min(a, b)) / float64(longer)
	var deduction float64
	switch {
	case ratio < 0.2:
		deduction = 10
	case ratio < 0.35:
		deduction = 6
	case ratio < 0.5:
		deduction = 3
	default:
		return nil
	}
	return []Violation{{CategoryLineBalance, SeverityLow,
		fmt.Sprintf("unbalanced lines (ratio %.2f)", ratio), deduction}}
}

// gap checks the gap from seg to the following segment.
func (c checker) gap(seg, next subtitles.Segment) []Violation {
	g := next.Start - seg.End
	switch {
	case g < -gapEpsilon:
		return []Violation{{CategoryGaps, SeverityCritical,
			fmt.Sprintf("overlaps next cue by %.3fs", -g), 20}}
	case math.Abs(g) <= gapEpsilon:
		return []Violation{{CategoryGaps, SeverityLow, "no gap before next cue", 8}}
	case g < c.profile.MinGap:
		return []Violation{{CategoryGaps, SeverityLow,
			fmt.Sprintf("gap %.3fs below minimum %.3fs", g, c.profile.MinGap), 5}}
	}
	return nil
}

func (c checker) speaker(prev *subtitles.Segment, seg subtitles.Segment, lines []string) []Violation {
	if !c.diarized {
		return nil
	}
	var out []Violation
	if prev != nil && prev.Speaker != "" && seg.Speaker != "" && prev.Speaker != seg.Speaker &&
		len(lines) > 0 && !hasDash(lines[0]) {
		out = append(out, Violation{CategorySpeaker, SeverityMedium,
			fmt.Sprintf("speaker change %s -> %s without dash", prev.Speaker, seg.Speaker), 15})
	}
	if len(lines) > 1 {
		dashed := 0
		for _, line := range lines {
			if hasDash(line) {
				dashed++
			}
		}
		if dashed > 0 && dashed < len(lines) {
			out = append(out, Violation{CategorySpeaker, SeverityLow, "inconsistent dialogue dashes", 10})
		}
	}
	return out
}

// confidence scores token logprobs. Segment averages are used only when no
// token values exist, and then only for the average checks.
func (c checker) confidence(tokens, averages []float64) []Violation {
	values := tokens
	if len(values) == 0 {
		values = averages
	}
	if len(values) == 0 {
		return nil
	}
	var out []Violation
	sum := 0.0
	for _, lp := range values {
		sum += lp
	}
	avg := sum / float64(len(values))
	switch {
	case avg < c.opts.VeryLowLogprob:
		out = append(out, Violation{CategoryConfidence, SeverityHigh,
			fmt.Sprintf("very low average logprob %.2f", avg), 15})
	case avg < c.opts.LowLogprob:
		out = append(out, Violation{CategoryConfidence, SeverityLow,
			fmt.Sprintf("low average logprob %.2f", avg), 5})
	}
	if len(tokens) == 0 {
		return out
	}
	lowest := math.Inf(1)
	streak, longest := 0, 0
	for _, lp := range tokens {
		lowest = math.Min(lowest, lp)
		if lp < c.opts.LowLogprob {
			streak++
			longest = max(longest, streak)
		} else {
			streak = 0
		}
	}
	if lowest < c.opts.VeryLowLogprob {
		out = append(out, Violation{CategoryConfidence, SeverityMedium,
			fmt.Sprintf("token logprob %.2f below %.2f", lowest, c.opts.VeryLowLogprob), 10})
	}
	if longest >= c.opts.HallucinationStreak {
		out = append(out, Violation{CategoryConfidence, SeverityCritical,
			fmt.Sprintf("%d consecutive low-confidence tokens, possible hallucination", longest), 20})
	}
	return out
}

func hasDash(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "–") || strings.HasPrefix(line, "—")
}

func lastWord(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func firstWord(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
