package optimizer

import (
	"slices"
	"strings"

	"cueforge/internal/language"
	"cueforge/internal/linebreak"
	"cueforge/internal/subtitles"
)

const (
	// extendPreviousMaxGap is the largest gap the previous cue is stretched across.
	extendPreviousMaxGap = 0.5
	// mergeMaxDuration and mergeMaxGap select cues folded into their successor.
	mergeMaxDuration = 1.0
	mergeMaxGap      = 0.3
	// minPositiveDuration is the sliver given to cues left with no duration.
	minPositiveDuration = 0.04
	maxOutputLines      = 2
)

// Policy controls optimization for one job.
type Policy struct {
	// TrustNativeTiming keeps provider timing for model families whose cue
	// boundaries are reliable. Only splitting and line limiting apply.
	TrustNativeTiming bool
	Profile           language.Profile
}

// PolicyFor builds a policy for the language code.
func PolicyFor(lang string, trustNative bool) Policy {
	return Policy{TrustNativeTiming: trustNative, Profile: language.ProfileFor(lang)}
}

// Result carries optimized segments plus counters for logging.
type Result struct {
	Segments []subtitles.Segment
	Dropped  int
	Extended int
	Split    int
	Merged   int
	Trimmed  int
}

// Optimize runs shaping, merging, and line limiting in that order.
func Optimize(segments []subtitles.Segment, policy Policy) []subtitles.Segment {
	return Run(segments, policy).Segments
}

// Run is Optimize with counters.
func Run(segments []subtitles.Segment, policy Policy) Result {
	if len(segments) == 0 {
		return Result{Segments: segments}
	}
	policy = policy.withDefaults()

	ordered := subtitles.Clone(segments)
	sortByStart(ordered)

	var res Result
	shaped := shape(ordered, policy, &res)
	// Split pieces of a long cue can land after a later-starting cue.
	sortByStart(shaped)
	merged := mergeShort(shaped, policy, &res)
	res.Segments = limitLines(merged, policy)
	ensurePositive(res.Segments)
	return res
}

// ShapeDurations runs only the duration shaping pass.
func ShapeDurations(segments []subtitles.Segment, policy Policy) []subtitles.Segment {
	if len(segments) == 0 {
		return segments
	}
	var res Result
	out := shape(subtitles.Clone(segments), policy.withDefaults(), &res)
	ensurePositive(out)
	return out
}

// MergeShort runs only the short-cue merging pass.
func MergeShort(segments []subtitles.Segment, policy Policy) []subtitles.Segment {
	if len(segments) == 0 {
		return segments
	}
	var res Result
	return mergeShort(subtitles.Clone(segments), policy.withDefaults(), &res)
}

// LimitLines runs only the line limiting pass.
func LimitLines(segments []subtitles.Segment, policy Policy) []subtitles.Segment {
	if len(segments) == 0 {
		return segments
	}
	return limitLines(subtitles.Clone(segments), policy.withDefaults())
}

// SingleSegment wraps an untimed transcript spanning duration seconds. The
// result is meant to be passed through Optimize, which splits it.
func SingleSegment(text string, duration float64) []subtitles.Segment {
	flat := subtitles.Flatten(text)
	if flat == "" || duration <= 0 {
		return nil
	}
	return []subtitles.Segment{{Start: 0, End: duration, Text: flat}}
}

func (p Policy) withDefaults() Policy {
	d := language.DefaultProfile
	if p.Profile.TargetCPS <= 0 {
		p.Profile.TargetCPS = d.TargetCPS
	}
	if p.Profile.MaxCPL <= 0 {
		p.Profile.MaxCPL = d.MaxCPL
	}
	if p.Profile.IdealMinDuration <= 0 {
		p.Profile.IdealMinDuration = d.IdealMinDuration
	}
	if p.Profile.MaxDuration <= 0 {
		p.Profile.MaxDuration = d.MaxDuration
	}
	if p.Profile.MaxLines <= 0 {
		p.Profile.MaxLines = d.MaxLines
	}
	if p.Profile.MinGap < 0 {
		p.Profile.MinGap = 0
	}
	return p
}

func limitLines(segments []subtitles.Segment, policy Policy) []subtitles.Segment {
	cpl := policy.Profile.MaxCPL
	for i := range segments {
		flat := subtitles.Flatten(segments[i].Text)
		lines := linebreak.Wrap(flat, cpl)
		if len(lines) > maxOutputLines {
			segments[i].Text = lines[0] + "\n" + strings.Join(lines[1:], " ")
			continue
		}
		segments[i].Text = strings.Join(linebreak.BreakWith(flat, policy.Profile), "\n")
	}
	return segments
}

func sortByStart(segments []subtitles.Segment) {
	slices.SortStableFunc(segments, func(a, b subtitles.Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
}

func ensurePositive(segments []subtitles.Segment) {
	for i := range segments {
		if segments[i].End <= segments[i].Start {
			segments[i].End = segments[i].Start + minPositiveDuration
		}
	}
}
