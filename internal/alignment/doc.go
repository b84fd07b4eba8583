// Package alignment converts provider cue text and optional word timing into
// ordered subtitle segments with corrected start times.
//
// Provider cue timing is coarse and word timing is noisy, so a cue is only
// moved onto word timing after several consecutive tokens agree. Corrections
// shift both bounds by the same delta, which keeps every cue's duration. The
// aligner never fails: malformed cues are dropped by the parser and ordering
// violations are clamped.
package alignment
