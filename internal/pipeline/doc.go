// Package pipeline turns an audio file into a scored subtitle file.
//
// A Runner processes one job strictly in order: the chunk list is walked one
// chunk at a time because each transcription request is seeded with the tail
// of the previous chunk's text. Every chunk file is removed as soon as its
// segments are extracted, including on failure. After the last chunk the
// combined segments pass through the hallucination filter, the optimizer and
// the formatter, and the result is scored by the quality gate.
//
// Concurrency lives one level up. A Pool hands out Workers (IDLE → ACTIVE →
// INACTIVE) and RunBatch runs independent jobs on them; no segment state is
// shared between jobs.
package pipeline
