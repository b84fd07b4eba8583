// Package services defines shared utilities consumed by the pipeline stages
// and the transcription backends.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and chunk indices for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the job error taxonomy (INVALID_REQUEST, RATE_LIMITED, ...).
//   - A reusable retry policy with exponential backoff for provider calls.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
