package alignment

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"cueforge/internal/subtitles"
)

const (
	defaultWindowSeconds = 15.0
	defaultMinConfirm    = 3
)

// Options tunes the alignment heuristics.
type Options struct {
	// WindowSeconds bounds how far past the running interval start a cue's
	// first word is searched for.
	WindowSeconds float64
	// MinConfirm is the number of consecutive matching tokens required before
	// a correction is committed.
	MinConfirm int
	// Nudge moves an unmatched cue forward to the first word when the
	// provider's words all start after it.
	Nudge bool
}

// DefaultOptions returns the standard alignment settings.
func DefaultOptions() Options {
	return Options{
		WindowSeconds: defaultWindowSeconds,
		MinConfirm:    defaultMinConfirm,
		Nudge:         true,
	}
}

// Result carries aligned segments plus counters for logging.
type Result struct {
	Segments  []subtitles.Segment
	Corrected int
	Clamped   int
	Nudged    int
}

// Align parses cue text and aligns it against words with default options.
func Align(cueText string, words []subtitles.Word) []subtitles.Segment {
	return DefaultOptions().Run(subtitles.ParseCues(cueText), words).Segments
}

// AlignSegments aligns already-parsed segments with default options.
func AlignSegments(segments []subtitles.Segment, words []subtitles.Word) []subtitles.Segment {
	return DefaultOptions().Run(segments, words).Segments
}

// Run aligns segments against words. Without words the segments are returned
// with their raw timing.
func (o Options) Run(segments []subtitles.Segment, words []subtitles.Word) Result {
	out := subtitles.Clone(segments)
	if len(out) == 0 || len(words) == 0 {
		return Result{Segments: out}
	}
	o = o.withDefaults()

	timed := prepareWords(words)
	if len(timed) == 0 {
		return Result{Segments: out}
	}

	res := Result{}
	intervalStart := out[0].Start
	for i := range out {
		seg := &out[i]
		if seg.Start < intervalStart {
			moveTo(seg, intervalStart)
			res.Clamped++
		}

		tokens := tokenize(seg.Text)
		if idx, ok := o.findMatch(tokens, timed, intervalStart); ok {
			if timed[idx].start != seg.Start {
				moveTo(seg, timed[idx].start)
				res.Corrected++
			}
		} else if o.Nudge && timed[0].start > seg.Start {
			moveTo(seg, timed[0].start)
			res.Nudged++
		}

		intervalStart = max(seg.Start, seg.End)
	}
	res.Segments = out
	return res
}

func (o Options) withDefaults() Options {
	if o.WindowSeconds <= 0 {
		o.WindowSeconds = defaultWindowSeconds
	}
	if o.MinConfirm <= 0 {
		o.MinConfirm = defaultMinConfirm
	}
	return o
}

// findMatch returns the index of the first word in the search window that
// begins a run of at least MinConfirm tokens matching the cue text.
func (o Options) findMatch(tokens []string, words []timedWord, intervalStart float64) (int, bool) {
	if len(tokens) < o.MinConfirm {
		return 0, false
	}
	windowEnd := intervalStart + o.WindowSeconds
	first := firstAtOrAfter(words, intervalStart)
	for i := first; i < len(words) && words[i].start <= windowEnd; i++ {
		if words[i].token != tokens[0] {
			continue
		}
		if matchLength(tokens, words[i:]) >= o.MinConfirm {
			return i, true
		}
	}
	return 0, false
}

func matchLength(tokens []string, words []timedWord) int {
	n := 0
	for n < len(tokens) && n < len(words) && tokens[n] == words[n].token {
		n++
	}
	return n
}

func firstAtOrAfter(words []timedWord, t float64) int {
	idx, _ := slices.BinarySearchFunc(words, t, func(w timedWord, target float64) int {
		switch {
		case w.start < target:
			return -1
		case w.start > target:
			return 1
		default:
			return 0
		}
	})
	return idx
}

// moveTo places seg at start exactly, keeping its duration.
func moveTo(seg *subtitles.Segment, start float64) {
	seg.End += start - seg.Start
	seg.Start = start
}

func shift(seg *subtitles.Segment, delta float64) {
	seg.Start += delta
	seg.End += delta
}

// Offset shifts every segment by seconds, used to move chunk-relative timing
// onto the source timeline.
func Offset(segments []subtitles.Segment, seconds float64) []subtitles.Segment {
	out := subtitles.Clone(segments)
	if seconds == 0 {
		return out
	}
	for i := range out {
		shift(&out[i], seconds)
	}
	return out
}

// OffsetWords shifts word timing by seconds.
func OffsetWords(words []subtitles.Word, seconds float64) []subtitles.Word {
	out := make([]subtitles.Word, len(words))
	for i, w := range words {
		w.Start += seconds
		w.End += seconds
		out[i] = w
	}
	return out
}

type timedWord struct {
	token string
	start float64
}

func prepareWords(words []subtitles.Word) []timedWord {
	out := make([]timedWord, 0, len(words))
	for _, w := range words {
		token := normalizeToken(w.Word)
		if token == "" {
			continue
		}
		out = append(out, timedWord{token: token, start: w.Start})
	}
	slices.SortStableFunc(out, func(a, b timedWord) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		default:
			return 0
		}
	})
	return out
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if token := normalizeToken(f); token != "" {
			out = append(out, token)
		}
	}
	return out
}

// normalizeToken lowercases, composes, and strips everything but letters and
// digits so "Don't," matches "don't".
func normalizeToken(s string) string {
	s = norm.NFC.String(strings.ToLower(s))
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
