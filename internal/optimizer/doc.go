// Package optimizer reshapes aligned segments into readable subtitle cues.
//
// Optimize runs three passes in a fixed order: duration shaping (extend short
// cues, split cues whose text cannot be read within the maximum duration),
// merging of very short cues into their successor, and line limiting through
// the linguistic line breaker. The optimizer repairs and never reports; its
// output always has positive durations no longer than the profile maximum and
// at most two lines per cue.
package optimizer
