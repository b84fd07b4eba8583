package audio

import (
	"context"
	"errors"
	"slices"
	"testing"

	"cueforge/internal/services"
)

func TestConvertArgs(t *testing.T) {
	mp3 := convertArgs("/in/movie.mkv", 1, "/out/audio.mp3")
	if i := slices.Index(mp3, "-map"); i < 0 || mp3[i+1] != "0:a:1" {
		t.Fatalf("expected audio stream map, got %v", mp3)
	}
	if !slices.Contains(mp3, "libmp3lame") || mp3[len(mp3)-1] != "/out/audio.mp3" {
		t.Fatalf("unexpected mp3 args %v", mp3)
	}

	wav := convertArgs("/in/a.flac", 0, "/out/a.WAV")
	if !slices.Contains(wav, "pcm_s16le") {
		t.Fatalf("expected PCM for wav output, got %v", wav)
	}
}

func TestConvertFailures(t *testing.T) {
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Stream map '0:a:3' matches no streams."), errors.New("exit status 1")
	}
	c := New(WithRunner(failing))
	if err := c.Convert(context.Background(), "in.mkv", 3, "out.mp3"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if err := c.Convert(context.Background(), "in.mkv", -1, "out.mp3"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
