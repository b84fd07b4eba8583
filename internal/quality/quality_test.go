package quality

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"cueforge/internal/language"
	"cueforge/internal/subtitles"
)

func hasViolation(s SegmentScore, c Category, sev Severity, deduction float64) bool {
	for _, v := range s.Violations {
		if v.Category == c && v.Severity == sev && v.Deduction == deduction {
			return true
		}
	}
	return false
}

func cleanTrack() []subtitles.Segment {
	return []subtitles.Segment{
		{Start: 0, End: 2.5, Text: "Good morning, everyone."},
		{Start: 3, End: 5.5, Text: "Thank you all for coming."},
		{Start: 6, End: 9, Text: "Let's start with the numbers\nfrom last quarter."},
	}
}

func TestRunGateEmpty(t *testing.T) {
	got := RunGate(nil, 70, "en", nil)
	if got.Pass || got.Score != 0 || got.QualityLevel != LevelFailing {
		t.Fatalf("unexpected empty gate result %+v", got)
	}
	if len(got.CategoryFailures) == 0 {
		t.Fatal("expected a failure summary for empty input")
	}
}

func TestGateThresholdZeroAlwaysPasses(t *testing.T) {
	long := strings.Repeat("word ", 40)
	poor := []subtitles.Segment{{Start: 0, End: 0.2, Text: long + "\n" + long + "\n" + long}}
	got := RunGate(poor, 0, "en", nil)
	if !got.Pass || got.Threshold != 0 {
		t.Fatalf("threshold 0 should pass any track, got %+v", got)
	}
	if RunGate(nil, 0, "en", nil).Pass {
		t.Fatal("empty track must still fail")
	}
	if got := RunGate(poor, -1, "en", nil); got.Threshold != DefaultThreshold || got.Pass {
		t.Fatalf("negative threshold should fall back to the default, got %+v", got)
	}
}

func TestCleanTrackPasses(t *testing.T) {
	got := RunGate(cleanTrack(), 70, "en", nil)
	if !got.Pass {
		t.Fatalf("expected pass, got %+v", got)
	}
	if got.Score < 90 || got.QualityLevel != LevelExcellent {
		t.Fatalf("expected excellent score, got %.1f %s (%+v)", got.Score, got.QualityLevel, got.Report.Segments)
	}
	if got.Threshold != 70 {
		t.Fatalf("unexpected threshold %v", got.Threshold)
	}
}

func TestOverlapIsCriticalGapViolation(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 3, Text: "First line of dialogue."},
		{Start: 2.5, End: 5, Text: "Second line of dialogue."},
	}
	report := Score(segments, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[0], CategoryGaps, SeverityCritical, 20) {
		t.Fatalf("expected critical gap violation, got %+v", report.Segments[0].Violations)
	}
}

func TestGapFaults(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 2, Text: "Back to back cue."},
		{Start: 2, End: 4, Text: "Tight cue here."},
		{Start: 4.01, End: 6, Text: "Final cue now."},
	}
	report := Score(segments, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[0], CategoryGaps, SeverityLow, 8) {
		t.Fatalf("expected zero-gap violation, got %+v", report.Segments[0].Violations)
	}
	if !hasViolation(report.Segments[1], CategoryGaps, SeverityLow, 5) {
		t.Fatalf("expected sub-minimum gap violation, got %+v", report.Segments[1].Violations)
	}
}

func TestEmptyTextIsCritical(t *testing.T) {
	report := Score([]subtitles.Segment{{Start: 0, End: 2, Text: "  "}}, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[0], CategoryContent, SeverityCritical, 50) {
		t.Fatalf("expected empty text violation, got %+v", report.Segments[0].Violations)
	}
}

func TestReadingSpeedTiers(t *testing.T) {
	c := checker{profile: language.ProfileFor("en")}
	tests := []struct {
		cps       float64
		deduction float64
	}{
		{16, 0},
		{17.5, 5},
		{19, 10},
		{20, 10},
		{25, 30},
	}
	for _, tt := range tests {
		vs := c.readingSpeed(tt.cps)
		var got float64
		for _, v := range vs {
			got += v.Deduction
		}
		if got != tt.deduction {
			t.Errorf("cps %.1f: deduction %v, want %v", tt.cps, got, tt.deduction)
		}
	}
}

func TestLineLengthTiers(t *testing.T) {
	c := checker{profile: language.ProfileFor("en")}
	tests := []struct {
		excess    int
		deduction float64
	}{
		{0, 0},
		{2, 6},
		{5, 15},
		{8, 18},
		{10, 20},
		{15, 20},
	}
	for _, tt := range tests {
		line := strings.Repeat("a", 42+tt.excess)
		var got float64
		for _, v := range c.lineLength([]string{line}) {
			got += v.Deduction
		}
		if got != tt.deduction {
			t.Errorf("excess %d: deduction %v, want %v", tt.excess, got, tt.deduction)
		}
	}
}

func TestLineCountAndDuration(t *testing.T) {
	report := Score([]subtitles.Segment{
		{Start: 0, End: 0.5, Text: "a\nb\nc"},
		{Start: 2, End: 12, Text: "a\nb\nc\nd"},
	}, "en", nil, DefaultOptions())
	first, second := report.Segments[0], report.Segments[1]
	if !hasViolation(first, CategoryLineCount, SeverityMedium, 15) || !hasViolation(first, CategoryDuration, SeverityMedium, 15) {
		t.Fatalf("unexpected first violations %+v", first.Violations)
	}
	if !hasViolation(second, CategoryLineCount, SeverityHigh, 30) || !hasViolation(second, CategoryDuration, SeverityMedium, 15) {
		t.Fatalf("unexpected second violations %+v", second.Violations)
	}
}

func TestLineBreakAndBalanceFaults(t *testing.T) {
	report := Score([]subtitles.Segment{
		{Start: 0, End: 4, Text: "I really wanted to see the\nmovie tonight"},
		{Start: 5, End: 9, Text: "We waited for the bus for a long time\nok"},
	}, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[0], CategoryLineBreaking, SeverityMedium, 10) {
		t.Fatalf("expected article split violation, got %+v", report.Segments[0].Violations)
	}
	if !hasViolation(report.Segments[1], CategoryLineBalance, SeverityLow, 10) {
		t.Fatalf("expected balance violation, got %+v", report.Segments[1].Violations)
	}
}

func TestSpeakerFaults(t *testing.T) {
	report := Score([]subtitles.Segment{
		{Start: 0, End: 2, Text: "Are you coming?", Speaker: "A"},
		{Start: 2.2, End: 4, Text: "Yes, right away.", Speaker: "B"},
		{Start: 5, End: 7, Text: "- Good.\nSee you there.", Speaker: "A"},
	}, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[1], CategorySpeaker, SeverityMedium, 15) {
		t.Fatalf("expected undashed speaker change, got %+v", report.Segments[1].Violations)
	}
	if !hasViolation(report.Segments[2], CategorySpeaker, SeverityLow, 10) {
		t.Fatalf("expected inconsistent dash violation, got %+v", report.Segments[2].Violations)
	}
}

func TestSpeakerChangeAfterPause(t *testing.T) {
	report := Score([]subtitles.Segment{
		{Start: 0, End: 2, Text: "Where were you last night?", Speaker: "A"},
		{Start: 2.6, End: 4.6, Text: "I was at home all evening.", Speaker: "B"},
		{Start: 8, End: 10, Text: "- Can anyone confirm that?", Speaker: "A"},
	}, "en", nil, DefaultOptions())
	if !hasViolation(report.Segments[1], CategorySpeaker, SeverityMedium, 15) {
		t.Fatalf("expected undashed speaker change after a pause, got %+v", report.Segments[1].Violations)
	}
	for _, v := range report.Segments[2].Violations {
		if v.Category == CategorySpeaker {
			t.Fatalf("dashed speaker change should be clean, got %+v", v)
		}
	}
}

func TestSegmentAveragesOnlyFeedAverageChecks(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 2.5, Text: "Somewhat unsure words here."},
		{Start: 3, End: 5.5, Text: "Barely audible words here."},
	}
	opts := DefaultOptions()
	opts.Averages = [][]float64{{-0.6}, {-2.4}}
	report := Score(segments, "en", nil, opts)

	if !hasViolation(report.Segments[0], CategoryConfidence, SeverityLow, 5) {
		t.Fatalf("expected low average violation, got %+v", report.Segments[0].Violations)
	}
	if !hasViolation(report.Segments[1], CategoryConfidence, SeverityHigh, 15) {
		t.Fatalf("expected very low average violation, got %+v", report.Segments[1].Violations)
	}
	for _, s := range report.Segments {
		if hasViolation(s, CategoryConfidence, SeverityCritical, 20) || hasViolation(s, CategoryConfidence, SeverityMedium, 10) {
			t.Fatalf("segment averages must not trigger token checks, got %+v", s.Violations)
		}
	}

	tokens := [][]float64{{-0.1, -0.1}, {-0.1, -0.1}}
	withTokens := Score(segments, "en", tokens, opts)
	for _, s := range withTokens.Segments {
		for _, v := range s.Violations {
			if v.Category == CategoryConfidence {
				t.Fatalf("token values take precedence over averages, got %+v", v)
			}
		}
	}
}

func TestConfidenceFaults(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 2.5, Text: "Confident words here."},
		{Start: 3, End: 5.5, Text: "Shaky words here."},
	}
	logprobs := [][]float64{
		{-0.1, -0.05, -0.2},
		{-0.9, -2.5, -0.8, -0.1},
	}
	report := Score(segments, "en", logprobs, DefaultOptions())
	if len(report.Segments[0].Violations) != 0 {
		t.Fatalf("expected confident segment clean, got %+v", report.Segments[0].Violations)
	}
	s := report.Segments[1]
	if !hasViolation(s, CategoryConfidence, SeverityLow, 5) {
		t.Fatalf("expected low average violation, got %+v", s.Violations)
	}
	if !hasViolation(s, CategoryConfidence, SeverityMedium, 10) {
		t.Fatalf("expected very low token violation, got %+v", s.Violations)
	}
	if !hasViolation(s, CategoryConfidence, SeverityCritical, 20) {
		t.Fatalf("expected hallucination streak violation, got %+v", s.Violations)
	}

	opts := DefaultOptions()
	opts.HallucinationStreak = 5
	relaxed := Score(segments, "en", logprobs, opts)
	if hasViolation(relaxed.Segments[1], CategoryConfidence, SeverityCritical, 20) {
		t.Fatal("expected configurable streak threshold")
	}
}

func TestSegmentScoreFloorsAtZero(t *testing.T) {
	long := strings.Repeat("word ", 40)
	report := Score([]subtitles.Segment{{Start: 0, End: 0.2, Text: long + "\n" + long + "\n" + long + "\n" + long}}, "en", nil, DefaultOptions())
	if report.Segments[0].Score != 0 {
		t.Fatalf("expected floor at zero, got %v", report.Segments[0].Score)
	}
	if report.Score != 0 || report.QualityLevel != LevelFailing {
		t.Fatalf("unexpected report %v %s", report.Score, report.QualityLevel)
	}
}

func TestDurationWeightingAndMultipliers(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 6, Text: "A long and perfectly fine cue."},
		{Start: 6.5, End: 7.0, Text: ""},
	}
	report := Score(segments, "en", nil, DefaultOptions())
	// The empty cue scores 100-50-15 = 35 over 0.5s; the clean cue 100 over 6s.
	wantWeighted := (100*6 + 35*0.5) / 6.5
	if diff := report.WeightedScore - round1(wantWeighted); diff > 0.05 || diff < -0.05 {
		t.Fatalf("weighted score %v, want %v", report.WeightedScore, wantWeighted)
	}
	if len(report.Multipliers) == 0 {
		t.Fatal("expected low-segment multiplier")
	}
	if report.Score >= report.WeightedScore {
		t.Fatalf("expected multiplier to lower the score, got %v vs %v", report.Score, report.WeightedScore)
	}
}

func TestLevels(t *testing.T) {
	tests := map[float64]string{95: LevelExcellent, 90: LevelExcellent, 80: LevelGood, 60: LevelFair, 45: LevelPoor, 39.9: LevelFailing}
	for score, want := range tests {
		if got := Level(score); got != want {
			t.Errorf("Level(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestGateCategoryFailures(t *testing.T) {
	var segments []subtitles.Segment
	for i := 0; i < 10; i++ {
		start := float64(i) * 3
		segments = append(segments, subtitles.Segment{Start: start, End: start + 1.2, Text: "This line is read far too quickly by anyone"})
	}
	got := RunGate(segments, 70, "en", nil)
	found := false
	for _, f := range got.CategoryFailures {
		if strings.HasPrefix(f, "Reading speed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reading speed failure, got %v", got.CategoryFailures)
	}
}

func TestAssertGate(t *testing.T) {
	if err := AssertGate(cleanTrack(), 70, "en", nil); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	err := AssertGate(nil, 70, "en", nil)
	var gateErr *GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected GateError, got %v", err)
	}
	if !strings.Contains(err.Error(), "quality gate failed") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

type fakeT struct {
	failed bool
	msg    string
}

func (f *fakeT) Helper() {}
func (f *fakeT) Fatalf(format string, args ...any) {
	f.failed = true
	f.msg = fmt.Sprintf(format, args...)
}

func TestMustPass(t *testing.T) {
	ft := &fakeT{}
	MustPass(ft, cleanTrack(), 70, "en")
	if ft.failed {
		t.Fatalf("unexpected failure: %s", ft.msg)
	}
	MustPass(ft, []subtitles.Segment{{Start: 0, End: 0.1, Text: ""}}, 70, "en")
	if !ft.failed || !strings.Contains(ft.msg, "#1") {
		t.Fatalf("expected detailed failure, got %q", ft.msg)
	}
}
