package quality

import (
	"fmt"
	"strings"

	"cueforge/internal/subtitles"
)

// DefaultThreshold is the pass mark used when the caller supplies none.
const DefaultThreshold = 70.0

// Category shares above which the gate reports a category failure.
var failureThresholds = []struct {
	category Category
	percent  float64
	message  string
}{
	{CategoryContent, 0, "segments with empty text"},
	{CategoryReadingSpeed, 20, "segments exceed target reading speed"},
	{CategoryLineLength, 10, "segments exceed line length"},
	{CategoryLineCount, 5, "segments exceed the line limit"},
	{CategoryDuration, 20, "segments outside duration limits"},
	{CategoryLineBreaking, 30, "segments have bad line breaks"},
	{CategoryGaps, 5, "segments have gap or overlap faults"},
	{CategorySpeaker, 20, "segments have speaker attribution faults"},
	{CategoryConfidence, 10, "segments have low transcription confidence"},
}

// GateResult is the outcome of RunGate.
type GateResult struct {
	Pass             bool     `json:"pass"`
	Score            float64  `json:"score"`
	Threshold        float64  `json:"threshold"`
	QualityLevel     string   `json:"quality_level"`
	Report           Report   `json:"report"`
	CategoryFailures []string `json:"category_failures"`
}

// RunGate scores segments with default options and compares the score to
// threshold. A negative threshold uses DefaultThreshold; zero passes any
// non-empty track. An empty track never passes.
func RunGate(segments []subtitles.Segment, threshold float64, lang string, logprobs [][]float64) GateResult {
	return RunGateWith(segments, threshold, lang, logprobs, DefaultOptions())
}

// RunGateWith is RunGate with explicit scoring options.
func RunGateWith(segments []subtitles.Segment, threshold float64, lang string, logprobs [][]float64, opts Options) GateResult {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	report := Score(segments, lang, logprobs, opts)
	return GateResult{
		Pass:             len(segments) > 0 && report.Score >= threshold,
		Score:            report.Score,
		Threshold:        threshold,
		QualityLevel:     report.QualityLevel,
		Report:           report,
		CategoryFailures: categoryFailures(report),
	}
}

func categoryFailures(report Report) []string {
	failures := []string{}
	if report.SegmentCount == 0 {
		return append(failures, "no segments to evaluate")
	}
	for _, rule := range failureThresholds {
		sum := report.Category(rule.category)
		if sum.SegmentsAffected > 0 && sum.Percent > rule.percent {
			failures = append(failures, fmt.Sprintf("%s: %.1f%% of %s (limit %.0f%%)",
				rule.category.Label(), sum.Percent, rule.message, rule.percent))
		}
	}
	return failures
}

// GateError is returned by AssertGate when the gate fails.
type GateError struct {
	Result GateResult
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate failed: score %.1f below threshold %.1f (%s)\n%s",
		e.Result.Score, e.Result.Threshold, e.Result.QualityLevel, Describe(e.Result))
}

// AssertGate runs the gate and returns a *GateError carrying the detailed
// report when it fails.
func AssertGate(segments []subtitles.Segment, threshold float64, lang string, logprobs [][]float64) error {
	result := RunGate(segments, threshold, lang, logprobs)
	if result.Pass {
		return nil
	}
	return &GateError{Result: result}
}

// Fataler is the subset of testing.TB used by MustPass.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// MustPass fails t with the detailed report when the gate fails.
func MustPass(t Fataler, segments []subtitles.Segment, threshold float64, lang string) {
	t.Helper()
	if err := AssertGate(segments, threshold, lang, nil); err != nil {
		t.Fatalf("%v", err)
	}
}

// Describe renders category failures and the worst segments as plain text.
func Describe(result GateResult) string {
	var sb strings.Builder
	for _, f := range result.CategoryFailures {
		sb.WriteString("  - ")
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	shown := 0
	for _, s := range result.Report.Segments {
		if len(s.Violations) == 0 || shown >= 5 {
			continue
		}
		shown++
		fmt.Fprintf(&sb, "  #%d %s-%s score %.0f:", s.Index+1,
			subtitles.FormatVTTTimestamp(s.Start), subtitles.FormatVTTTimestamp(s.End), s.Score)
		for _, v := range s.Violations {
			fmt.Fprintf(&sb, " [%s] %s;", v.Severity, v.Message)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
