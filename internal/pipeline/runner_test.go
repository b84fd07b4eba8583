package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"cueforge/internal/config"
	"cueforge/internal/jobstore"
	"cueforge/internal/quality"
	"cueforge/internal/services"
	"cueforge/internal/subtitles"
	"cueforge/internal/testsupport"
	"cueforge/internal/transcription"
	"cueforge/internal/transcription/mock"
)

// fakeTools answers ffprobe and ffmpeg invocations without running them.
type fakeTools struct {
	mu       sync.Mutex
	duration float64
	silence  []float64
	pieces   int
	calls    [][]string
}

func (f *fakeTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	switch {
	case name == "ffprobe":
		return fmt.Appendf(nil, `{"streams":[],"format":{"duration":"%.3f"}}`, f.duration), nil
	case slices.Contains(args, "-af"):
		var b strings.Builder
		for _, end := range f.silence {
			fmt.Fprintf(&b, "[silencedetect @ 0x1] silence_end: %.3f | silence_duration: 2.500\n", end)
		}
		return []byte(b.String()), nil
	case slices.Contains(args, "segment"):
		pattern := args[len(args)-1]
		for i := range f.pieces {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("chunk"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case slices.Contains(args, "-vn"):
		dest := args[len(args)-1]
		return nil, os.WriteFile(dest, []byte("converted"), 0o644)
	}
	return nil, fmt.Errorf("unexpected command %s %v", name, args)
}

func (f *fakeTools) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

func cues(lines ...string) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n\n")
	}
	return b.String()
}

func timedCaps() transcription.Capabilities {
	return transcription.Capabilities{NativeTiming: true, WordTimestamps: true, Prompt: true}
}

func newTestRunner(t *testing.T, cfg *config.Config, provider transcription.Provider, tools *fakeTools) (*Runner, *jobstore.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	if tools == nil {
		tools = &fakeTools{duration: 10}
	}
	return NewRunner(cfg, provider, WithStore(store), WithToolRunner(tools.run)), store
}

func assertStagingEmpty(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging not cleaned up: %v", entries)
	}
}

func TestRunSmallFileSkipsChunking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "media", "talk.mp3")
	testsupport.WriteFile(t, src, 2048)

	provider := &mock.Provider{Caps: timedCaps(), Script: []mock.Step{{Result: transcription.Result{
		CueText: cues(
			"00:00:01.000 --> 00:00:03.500\nGood morning and welcome to the show.",
			"00:00:04.000 --> 00:00:06.500\nToday we are talking about rivers.",
		),
	}}}}
	tools := &fakeTools{duration: 8}
	runner, store := newTestRunner(t, cfg, provider, tools)

	out, err := runner.Run(context.Background(), Job{Source: src, Language: "en"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	reqs := provider.Requests()
	if len(reqs) != 1 || reqs[0].FilePath != src || reqs[0].Prompt != "" || reqs[0].Language != "en" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	if tools.count("ffmpeg") != 0 {
		t.Fatal("small input should not invoke ffmpeg")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("original input must survive: %v", err)
	}

	wantPath := strings.TrimSuffix(src, ".mp3") + ".vtt"
	if out.OutputPath != wantPath {
		t.Fatalf("output path = %q, want %q", out.OutputPath, wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT") || !strings.Contains(string(data), "rivers") {
		t.Fatalf("unexpected output:\n%s", data)
	}
	if len(out.Segments) != 2 || out.Chunks != 1 {
		t.Fatalf("segments=%d chunks=%d", len(out.Segments), out.Chunks)
	}

	job, err := store.Get(context.Background(), out.JobID)
	if err != nil || job == nil {
		t.Fatalf("Get job: %v %v", job, err)
	}
	if job.Status != jobstore.StatusCompleted || job.SegmentCount != 2 || job.Score == nil {
		t.Fatalf("unexpected job record: %+v", job)
	}
	if *job.Score != out.Gate.Score {
		t.Fatalf("recorded score %v, gate score %v", *job.Score, out.Gate.Score)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunChunkedSeedsPromptsAndOffsets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.MaxChunkMB = 1
	src := filepath.Join(testsupport.BaseDir(cfg), "long.mp3")
	testsupport.WriteFile(t, src, 2*1024*1024+512)

	var seen []string
	provider := &mock.Provider{
		Caps: timedCaps(),
		Script: []mock.Step{
			{Result: transcription.Result{CueText: cues("00:00:01.000 --> 00:00:04.000\nThe first part of the story begins here.")}},
			{Result: transcription.Result{CueText: cues("00:00:01.000 --> 00:00:04.000\nThen the second part carries it forward.")}},
			{Result: transcription.Result{CueText: cues("00:00:01.000 --> 00:00:04.000\nAnd the third part brings it home.")}},
		},
		OnCall: func(req transcription.Request) {
			if _, err := os.Stat(req.FilePath); err != nil {
				t.Errorf("chunk %s missing at submission: %v", req.FilePath, err)
			}
			seen = append(seen, req.FilePath)
		},
	}
	tools := &fakeTools{duration: 120, silence: []float64{40, 80}, pieces: 3}
	runner, _ := newTestRunner(t, cfg, provider, tools)

	out, err := runner.Run(context.Background(), Job{Source: src, Language: "en", Format: "srt"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	reqs := provider.Requests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	if reqs[0].Prompt != "" {
		t.Fatalf("first chunk should have no prompt, got %q", reqs[0].Prompt)
	}
	if reqs[1].Prompt != "The first part of the story begins here." {
		t.Fatalf("second prompt = %q", reqs[1].Prompt)
	}
	if reqs[2].Prompt != "Then the second part carries it forward." {
		t.Fatalf("third prompt = %q", reqs[2].Prompt)
	}
	for _, path := range seen {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("chunk %s not deleted", path)
		}
	}

	if out.Chunks != 3 || len(out.Segments) != 3 {
		t.Fatalf("chunks=%d segments=%+v", out.Chunks, out.Segments)
	}
	for i, want := range []float64{1, 41, 81} {
		if math.Abs(out.Segments[i].Start-want) > 0.05 {
			t.Fatalf("segment %d starts at %.3f, want %.1f", i, out.Segments[i].Start, want)
		}
	}
	if !strings.HasSuffix(out.OutputPath, ".srt") || !strings.HasPrefix(out.Content, "1\n") {
		t.Fatalf("expected srt output, got %q:\n%s", out.OutputPath, out.Content)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunFailureDeletesChunksAndRecordsCode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.MaxChunkMB = 1
	src := filepath.Join(testsupport.BaseDir(cfg), "long.wav")
	testsupport.WriteFile(t, src, 2*1024*1024+512)

	var seen []string
	provider := &mock.Provider{
		Caps: timedCaps(),
		Script: []mock.Step{
			{Result: transcription.Result{CueText: cues("00:00:01.000 --> 00:00:04.000\nOnly the first chunk makes it.")}},
			{Err: services.Wrap(services.ErrUnauthorized, "transcription", "openai", "invalid key", nil)},
		},
		OnCall: func(req transcription.Request) { seen = append(seen, req.FilePath) },
	}
	tools := &fakeTools{duration: 120, silence: []float64{40, 80}, pieces: 3}
	runner, store := newTestRunner(t, cfg, provider, tools)

	_, err := runner.Run(context.Background(), Job{Source: src})
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected processing to stop at the failing chunk, saw %d calls", len(seen))
	}
	assertStagingEmpty(t, cfg)

	jobs, err := store.List(context.Background(), jobstore.ListOptions{})
	if err != nil || len(jobs) != 1 {
		t.Fatalf("List: %v %v", jobs, err)
	}
	if jobs[0].Status != jobstore.StatusFailed || jobs[0].ErrorCode != services.CodeUnauthorized {
		t.Fatalf("unexpected job record: %+v", jobs[0])
	}
	if _, err := os.Stat(strings.TrimSuffix(src, ".wav") + ".vtt"); !os.IsNotExist(err) {
		t.Fatal("no subtitle file should be written on failure")
	}
}

func TestRunUntimedProviderSpansProbedDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "clip.mp3")
	testsupport.WriteFile(t, src, 1024)

	text := "We walked along the river for an hour. The water was cold and clear. " +
		"Nobody said much until we reached the bridge, where the path turned back toward town."
	logprobs := make([]float64, 30)
	for i := range logprobs {
		logprobs[i] = -0.05
	}
	provider := &mock.Provider{
		Caps:   transcription.Capabilities{Logprobs: true, Prompt: true},
		Script: []mock.Step{{Result: transcription.Result{Text: text, Logprobs: logprobs}}},
	}
	tools := &fakeTools{duration: 12}
	runner, _ := newTestRunner(t, cfg, provider, tools)

	out, err := runner.Run(context.Background(), Job{Source: src, Language: "en"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tools.count("ffprobe") != 1 {
		t.Fatalf("expected one duration probe, got %d", tools.count("ffprobe"))
	}
	if len(out.Segments) < 2 {
		t.Fatalf("expected the transcript to be split, got %+v", out.Segments)
	}
	if out.Segments[0].Start < 0 || out.Segments[len(out.Segments)-1].End > 12.001 {
		t.Fatalf("segments exceed the probed duration: %+v", out.Segments)
	}
	var joined []string
	for _, s := range out.Segments {
		joined = append(joined, subtitles.Flatten(s.Text))
	}
	if strings.Join(joined, " ") != text {
		t.Fatalf("text lost in splitting:\n%s", strings.Join(joined, " "))
	}
}

func TestRunExtractsAudioWhenRequested(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "movie.mkv")
	testsupport.WriteFile(t, src, 4096)

	provider := &mock.Provider{Caps: timedCaps(), Script: []mock.Step{{Result: transcription.Result{
		CueText: cues("00:00:01.000 --> 00:00:03.000\nExtracted speech track works."),
	}}}}
	tools := &fakeTools{duration: 5}
	runner, _ := newTestRunner(t, cfg, provider, tools)

	out, err := runner.Run(context.Background(), Job{Source: src, ExtractAudio: true, AudioStream: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := provider.Requests()[0]
	if filepath.Base(req.FilePath) != "audio.mp3" {
		t.Fatalf("provider received %s, want the converted track", req.FilePath)
	}
	if out.OutputPath != strings.TrimSuffix(src, ".mkv")+".vtt" {
		t.Fatalf("output path = %s", out.OutputPath)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunRejectsInvalidJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	provider := &mock.Provider{Caps: timedCaps(), Script: []mock.Step{{}}}
	runner, store := newTestRunner(t, cfg, provider, nil)

	_, err := runner.Run(context.Background(), Job{Source: filepath.Join(t.TempDir(), "missing.wav")})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	jobs, _ := store.List(context.Background(), jobstore.ListOptions{})
	if len(jobs) != 1 || jobs[0].Status != jobstore.StatusFailed || jobs[0].ErrorCode != services.CodeInvalidRequest {
		t.Fatalf("unexpected job records: %+v", jobs)
	}

	src := filepath.Join(t.TempDir(), "ok.wav")
	testsupport.WriteFile(t, src, 10)
	if _, err := runner.Run(context.Background(), Job{Source: src, Format: "ass"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for format, got %v", err)
	}
	if provider.CallCount() != 0 {
		t.Fatal("provider must not be called for invalid jobs")
	}
}

func TestRunWithoutStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "a.wav")
	testsupport.WriteFile(t, src, 100)
	provider := &mock.Provider{Caps: timedCaps(), Script: []mock.Step{{Result: transcription.Result{
		CueText: cues("00:00:00.500 --> 00:00:02.500\nNo database needed here."),
	}}}}
	tools := &fakeTools{duration: 3}
	runner := NewRunner(cfg, provider, WithToolRunner(tools.run))

	out, err := runner.Run(context.Background(), Job{Source: src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.JobID == "" {
		t.Fatal("expected a generated job id")
	}
}

func TestRunSegmentAveragesDoNotLookLikeHallucinations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "media", "walk.mp3")
	testsupport.WriteFile(t, src, 2048)

	var words []subtitles.Word
	for i, w := range strings.Fields("We walked along the river for an hour.") {
		start := 1 + float64(i)*0.35
		words = append(words, subtitles.Word{Word: w, Start: start, End: start + 0.3})
	}
	caps := timedCaps()
	caps.Logprobs = true
	provider := &mock.Provider{Caps: caps, Script: []mock.Step{{Result: transcription.Result{
		CueText:  cues("00:00:01.000 --> 00:00:04.000\nWe walked along the river for an hour."),
		Words:    words,
		Averages: []transcription.SpanLogprob{{Start: 1, End: 4, Logprob: -0.6}},
	}}}}
	runner, _ := newTestRunner(t, cfg, provider, &fakeTools{duration: 6})

	out, err := runner.Run(context.Background(), Job{Source: src, Language: "en"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lowAverage := false
	for _, seg := range out.Gate.Report.Segments {
		for _, v := range seg.Violations {
			if v.Category != quality.CategoryConfidence {
				continue
			}
			if v.Severity == quality.SeverityCritical || v.Severity == quality.SeverityMedium {
				t.Fatalf("segment average treated as token values: %+v", v)
			}
			if v.Severity == quality.SeverityLow && v.Deduction == 5 {
				lowAverage = true
			}
		}
	}
	if !lowAverage {
		t.Fatalf("expected one low average violation, got %+v", out.Gate.Report.Segments)
	}
}

func TestTailChars(t *testing.T) {
	if got := tailChars("  short  ", 200); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("word ", 60)
	got := tailChars(long, 200)
	if len([]rune(got)) > 200 {
		t.Fatalf("tail too long: %d", len([]rune(got)))
	}
	if strings.HasPrefix(got, "ord") || strings.HasPrefix(got, " ") {
		t.Fatalf("tail should start on a word boundary: %q", got[:10])
	}
	if got := tailChars(strings.Repeat("é", 250), 200); len([]rune(got)) != 200 {
		t.Fatalf("unbroken text should be cut at 200 runes, got %d", len([]rune(got)))
	}
}

func TestAttributeLogprobs(t *testing.T) {
	lp := func(v float64) *float64 { return &v }
	segs := []subtitles.Segment{
		{Start: 0, End: 2, Text: "aaaa"},
		{Start: 2, End: 4, Text: "aaaaaaaaaaaa"},
		{Start: 10, End: 12, Text: "bb"},
	}
	words := []subtitles.Word{
		{Word: "x", Start: 0.5, End: 1, Logprob: lp(-0.1)},
		{Word: "y", Start: 2.5, End: 3, Logprob: lp(-0.2)},
		{Word: "z", Start: 3, End: 3.5},
	}
	got := attributeLogprobs(segs, words, nil)
	if len(got) != 3 || len(got[0]) != 1 || len(got[1]) != 1 || len(got[2]) != 0 {
		t.Fatalf("word attribution = %v", got)
	}

	tokens := []tokenSpan{{start: 0, end: 5, logprobs: []float64{-1, -2, -3, -4, -5, -6, -7, -8}}}
	got = attributeLogprobs(segs, nil, tokens)
	if len(got[0]) != 2 || len(got[1]) != 6 || len(got[2]) != 0 {
		t.Fatalf("token attribution = %v", got)
	}
	if got[0][0] != -1 || got[1][5] != -8 {
		t.Fatalf("token order not preserved: %v", got)
	}

	if attributeLogprobs(segs, []subtitles.Word{{Word: "q", Start: 1, End: 2}}, nil) != nil {
		t.Fatal("expected nil when no confidence is available")
	}

	averages := attributeAverages(segs, []transcription.SpanLogprob{
		{Start: 0, End: 4, Logprob: -0.6},
		{Start: 10, End: 12, Logprob: -0.3},
	})
	if len(averages) != 3 || len(averages[1]) != 1 || averages[1][0] != -0.6 || len(averages[0]) != 0 || averages[2][0] != -0.3 {
		t.Fatalf("average attribution = %v", averages)
	}
	if attributeAverages(segs, nil) != nil {
		t.Fatal("expected nil without averages")
	}
}
