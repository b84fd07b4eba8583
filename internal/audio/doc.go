// Package audio splits long audio files into provider-sized chunks.
//
// Chunk boundaries come from ffmpeg's silencedetect filter so cuts land in
// pauses rather than mid-word. When no usable silence exists an oversized
// file is cut into equal-duration pieces instead. Every returned chunk carries
// its start offset in the source so transcription timestamps can be made
// absolute again.
package audio
