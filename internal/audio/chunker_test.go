package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"cueforge/internal/services"
	"cueforge/internal/testsupport"
)

type fakeTools struct {
	duration     float64
	silence      string
	segmentFiles int
	segmentErr   error
	calls        [][]string
}

func (f *fakeTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	switch {
	case name == "ffprobe":
		return fmt.Appendf(nil, `{"streams":[],"format":{"duration":"%.3f"}}`, f.duration), nil
	case slices.Contains(args, "-af"):
		return []byte(f.silence), nil
	case slices.Contains(args, "segment"):
		if f.segmentErr != nil {
			return []byte("Invalid data found when processing input"), f.segmentErr
		}
		pattern := args[len(args)-1]
		for i := range f.segmentFiles {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("x"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func (f *fakeTools) segmentArgs() []string {
	for _, call := range f.calls {
		if slices.Contains(call, "segment") {
			return call
		}
	}
	return nil
}

func silenceLog(ends ...float64) string {
	var b strings.Builder
	for _, end := range ends {
		fmt.Fprintf(&b, "[silencedetect @ 0x55d] silence_start: %.3f\n", end-2.5)
		fmt.Fprintf(&b, "[silencedetect @ 0x55d] silence_end: %.3f | silence_duration: 2.500\n", end)
	}
	return b.String()
}

func TestParseSilenceEnds(t *testing.T) {
	out := silenceLog(12.5, 40.25) + "size=N/A time=00:01:00.00 bitrate=N/A\n"
	got := ParseSilenceEnds(out)
	if !slices.Equal(got, []float64{12.5, 40.25}) {
		t.Fatalf("ParseSilenceEnds = %v", got)
	}
}

func TestChunkSmallFileWithoutSilenceReturnsOriginal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mp3")
	testsupport.WriteFile(t, src, 1000)
	tools := &fakeTools{duration: 60}

	chunks, err := New(WithRunner(tools.run), WithLimit(4096)).Chunk(context.Background(), src, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || !chunks[0].Original || chunks[0].Path != src {
		t.Fatalf("expected original file, got %+v", chunks)
	}
	if chunks[0].End != 60 {
		t.Fatalf("expected end 60, got %v", chunks[0].End)
	}
	if tools.segmentArgs() != nil {
		t.Fatal("segment muxer should not run")
	}
	if err := Remove(chunks[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("original input must never be removed")
	}
}

func TestChunkOversizedWithoutSilenceSplitsEqually(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mp3")
	testsupport.WriteFile(t, src, 10_000)
	// The only silence is inside the trailing window and must be ignored.
	tools := &fakeTools{duration: 90, silence: silenceLog(89), segmentFiles: 3}

	chunks, err := New(WithRunner(tools.run), WithLimit(4000)).Chunk(context.Background(), src, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected ceil(10000/4000)=3 chunks, got %d", len(chunks))
	}
	args := tools.segmentArgs()
	idx := slices.Index(args, "-segment_time")
	if idx < 0 || args[idx+1] != "30.000" {
		t.Fatalf("expected equal 30s segments, args %v", args)
	}
	wantStarts := []float64{0, 30, 60}
	for i, c := range chunks {
		if c.Start != wantStarts[i] || c.Index != i || c.Original {
			t.Fatalf("chunk %d = %+v", i, c)
		}
	}
	if chunks[2].End != 90 {
		t.Fatalf("last chunk should end at duration, got %v", chunks[2].End)
	}
}

func TestChunkSplitsAtSilencePoints(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	testsupport.WriteFile(t, src, 10_000)
	tools := &fakeTools{duration: 100, silence: silenceLog(55.5, 20.25, 99), segmentFiles: 3}

	chunks, err := New(WithRunner(tools.run), WithLimit(4000)).Chunk(context.Background(), src, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	args := tools.segmentArgs()
	idx := slices.Index(args, "-segment_times")
	if idx < 0 || args[idx+1] != "20.250,55.500" {
		t.Fatalf("unexpected segment times in %v", args)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Path <= chunks[i-1].Path {
			t.Fatalf("chunk paths not in lexicographic order: %v then %v", chunks[i-1].Path, chunks[i].Path)
		}
	}
	if chunks[1].Start != 20.25 || chunks[1].End != 55.5 || chunks[2].End != 100 {
		t.Fatalf("unexpected boundaries %+v", chunks)
	}
	if filepath.Ext(chunks[0].Path) != ".wav" {
		t.Fatalf("chunk should keep input extension, got %s", chunks[0].Path)
	}
}

func TestChunkToolFailureLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mp3")
	out := filepath.Join(dir, "out")
	testsupport.WriteFile(t, src, 10_000)
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(out, "chunk_0000.mp3"), 10)
	tools := &fakeTools{duration: 100, silence: silenceLog(50), segmentErr: errors.New("exit status 1")}

	_, err := New(WithRunner(tools.run), WithLimit(4000)).Chunk(context.Background(), src, out)
	if err == nil {
		t.Fatal("expected chunking error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if services.Code(err) != services.CodeChunkingFailed {
		t.Fatalf("expected CHUNKING_FAILED, got %s", services.Code(err))
	}
	leftovers, _ := filepath.Glob(filepath.Join(out, "chunk_*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected no partial chunks, found %v", leftovers)
	}
}

func TestChunkMissingInput(t *testing.T) {
	tools := &fakeTools{duration: 10}
	_, err := New(WithRunner(tools.run)).Chunk(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSilencedetectArguments(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mp3")
	testsupport.WriteFile(t, src, 100)
	tools := &fakeTools{duration: 10}
	if _, err := New(WithRunner(tools.run), WithSilence(-35, 1.5)).Chunk(context.Background(), src, dir); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	var filter string
	for _, call := range tools.calls {
		if i := slices.Index(call, "-af"); i >= 0 {
			filter = call[i+1]
		}
	}
	if filter != "silencedetect=noise=-35dB:d=1.50" {
		t.Fatalf("unexpected filter %q", filter)
	}
}
