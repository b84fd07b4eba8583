// Package ffprobe wraps the ffprobe CLI to read container duration and size
// for audio files before chunking and for providers without native timing.
package ffprobe
