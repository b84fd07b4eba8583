// Package subtitles holds the cue data model shared by every pipeline stage
// together with WebVTT/SubRip formatting and parsing and the post-transcription
// hallucination filter.
//
// Formatting is bit-exact: FormatVTT emits a "WEBVTT" header followed by
// "start --> end" cues separated by blank lines, FormatSRT emits 1-based
// indices and comma millisecond separators. ParseCues is the lenient reader
// used for provider output, it drops blocks with unparseable timecodes and
// joins multi-line cue text with a single space.
package subtitles
