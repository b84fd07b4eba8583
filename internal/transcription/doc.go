// Package transcription defines the contract between the subtitle pipeline
// and speech-to-text backends.
//
// Backends differ in what they return. Some produce timed cues plus word
// timing, others only a text blob. Capabilities lets the pipeline pick the
// right downstream path without type-switching on concrete providers:
//
//   - NativeTiming: CueText holds WebVTT-style cues that go through the aligner.
//   - Otherwise Text is the whole chunk and becomes one segment spanning the
//     chunk's probed duration before optimizer splitting.
//
// Concrete backends live in the openai, whisperx and mock subpackages.
// WithRetry wraps any Provider with the shared backoff policy.
package transcription
