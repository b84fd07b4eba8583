// Package quality scores finished subtitle tracks against per-language
// readability rules and gates them against a pass mark.
//
// Scoring is independent of how segments were produced. Every segment starts
// at 100 and loses points per violation (floored at 0). The track score is the
// duration-weighted mean of segment scores, scaled down when a category is
// violated across too large a share of segments. A failing score is a normal
// result; AssertGate is the error-returning variant for callers that want one.
package quality
