package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cueforge/internal/services"
)

// Convert extracts one audio stream from source into a mono 16 kHz file at
// dest. A .wav destination gets PCM; anything else gets 64 kbit/s MP3, which
// keeps roughly 50 minutes of speech under the 25 MB upload limit.
func (c *Chunker) Convert(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return services.Wrap(services.ErrValidation, stageName, "convert", fmt.Sprintf("invalid audio track index %d", audioIndex), nil)
	}
	output, err := c.run(ctx, c.ffmpeg, convertArgs(source, audioIndex, dest)...)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "convert",
			strings.TrimSpace(lastLines(string(output), 3)), err)
	}
	return nil
}

func convertArgs(source string, audioIndex int, dest string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:a:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
	}
	if strings.EqualFold(filepath.Ext(dest), ".wav") {
		args = append(args, "-c:a", "pcm_s16le")
	} else {
		args = append(args, "-c:a", "libmp3lame", "-b:a", "64k")
	}
	return append(args, dest)
}
