package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cueforge/internal/alignment"
	"cueforge/internal/audio"
	"cueforge/internal/config"
	"cueforge/internal/fileutil"
	"cueforge/internal/jobstore"
	"cueforge/internal/language"
	"cueforge/internal/logging"
	"cueforge/internal/media/ffprobe"
	"cueforge/internal/optimizer"
	"cueforge/internal/quality"
	"cueforge/internal/services"
	"cueforge/internal/staging"
	"cueforge/internal/subtitles"
	"cueforge/internal/transcription"
)

// PromptChars is how much trailing text from the previous chunk seeds the
// next request.
const PromptChars = 200

// Job describes one audio file to subtitle.
type Job struct {
	// ID is assigned by the job store when empty.
	ID       string
	Source   string
	Language string
	// Format is "vtt" (default) or "srt".
	Format string
	// OutputPath defaults to the source path with the format's extension.
	OutputPath string
	// ExtractAudio converts the source (typically a video container) to a
	// mono speech track before chunking. AudioStream selects the stream.
	ExtractAudio bool
	AudioStream  int
}

// Output is a finished job.
type Output struct {
	JobID      string
	OutputPath string
	Content    string
	Segments   []subtitles.Segment
	Chunks     int
	Filtered   int
	Gate       quality.GateResult
	Elapsed    time.Duration
}

// Runner executes jobs. It is safe for concurrent use; every job keeps its
// own segment state.
type Runner struct {
	cfg      *config.Config
	provider transcription.Provider
	chunker  *audio.Chunker
	staging  *staging.Manager
	store    *jobstore.Store
	probe    ffprobe.Runner
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore records job transitions in store.
func WithStore(store *jobstore.Store) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithToolRunner replaces the command runner used for ffmpeg and ffprobe.
func WithToolRunner(run ffprobe.Runner) RunnerOption {
	return func(r *Runner) {
		if run != nil {
			r.probe = run
		}
	}
}

// NewRunner builds a Runner for cfg around provider. The chunk size limit is
// the smaller of the configured limit and the provider's upload ceiling.
func NewRunner(cfg *config.Config, provider transcription.Provider, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		provider: provider,
		probe:    ffprobe.ExecRunner,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	r.staging = staging.New(cfg.Paths.StagingDir, r.logger)

	limit := cfg.MaxChunkBytes()
	if caps := provider.Capabilities(); caps.MaxFileBytes > 0 && (limit <= 0 || caps.MaxFileBytes < limit) {
		limit = caps.MaxFileBytes
	}
	r.chunker = audio.New(
		audio.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		audio.WithLimit(limit),
		audio.WithSilence(int(math.Round(cfg.Chunking.NoiseDB)), cfg.Chunking.MinSilenceSeconds),
		audio.WithTrailingWindow(cfg.Chunking.TrailingSilenceSeconds),
		audio.WithRunner(r.probe),
		audio.WithLogger(r.logger),
	)
	return r
}

// Chunker exposes the configured chunker.
func (r *Runner) Chunker() *audio.Chunker { return r.chunker }

// Staging exposes the staging manager.
func (r *Runner) Staging() *staging.Manager { return r.staging }

// Run processes job to completion. The job record, when a store is
// attached, ends either completed or failed with the error's code.
func (r *Runner) Run(ctx context.Context, job Job) (Output, error) {
	start := time.Now()
	if err := r.prepare(ctx, &job); err != nil {
		return Output{}, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("source", job.Source),
		logging.String("language", job.Language),
		logging.String("provider", r.provider.Name()),
	)

	out, err := r.execute(ctx, job, logger)
	if err != nil {
		r.recordFailure(ctx, logger, job, err)
		return Output{}, err
	}
	out.JobID = job.ID
	out.Elapsed = time.Since(start)

	if r.store != nil {
		if err := r.store.Complete(ctx, job.ID, jobstore.Completion{
			SegmentCount:     len(out.Segments),
			ChunkCount:       out.Chunks,
			Score:            out.Gate.Score,
			QualityLevel:     out.Gate.QualityLevel,
			GatePassed:       out.Gate.Pass,
			CategoryFailures: out.Gate.CategoryFailures,
			OutputPath:       out.OutputPath,
		}); err != nil {
			logging.WarnWithContext(logger, "failed to record job completion", "job_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check job database access"),
				logging.String(logging.FieldImpact, "job history is missing this result"),
			)
		}
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("segments", len(out.Segments)),
		logging.Int("chunks", out.Chunks),
		logging.Float64("score", out.Gate.Score),
		logging.Bool("gate_passed", out.Gate.Pass),
		logging.String("output", out.OutputPath),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (r *Runner) prepare(ctx context.Context, job *Job) error {
	job.Source = strings.TrimSpace(job.Source)
	if job.Language == "" {
		job.Language = r.cfg.Transcription.Language
	}
	if iso := language.ToISO2(job.Language); iso != "" {
		job.Language = iso
	}
	job.Format = strings.ToLower(strings.TrimSpace(job.Format))
	if job.Format == "" {
		job.Format = subtitles.FormatNameVTT
	}
	if job.OutputPath == "" && job.Source != "" {
		job.OutputPath = fileutil.ReplaceExt(job.Source, job.Format)
	}

	var invalid error
	switch {
	case job.Source == "":
		invalid = services.Wrap(services.ErrValidation, "pipeline", "prepare", "source path is required", nil)
	case job.Format != subtitles.FormatNameVTT && job.Format != subtitles.FormatNameSRT:
		invalid = services.Wrap(services.ErrValidation, "pipeline", "prepare",
			fmt.Sprintf("unsupported subtitle format %q", job.Format), nil)
	default:
		if info, err := os.Stat(job.Source); err != nil || info.IsDir() {
			invalid = services.Wrap(services.ErrValidation, "pipeline", "prepare",
				fmt.Sprintf("source %s is not a readable file", job.Source), err)
		}
	}

	if r.store != nil && job.ID == "" {
		record, err := r.store.NewJob(ctx, job.Source, job.Language, r.provider.Name())
		if err != nil {
			if invalid != nil {
				return invalid
			}
			return fmt.Errorf("create job record: %w", err)
		}
		job.ID = record.ID
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if invalid != nil {
		r.recordFailure(ctx, r.logger, *job, invalid)
		return invalid
	}
	if r.store != nil {
		if err := r.store.MarkRunning(ctx, job.ID); err != nil {
			return fmt.Errorf("mark job running: %w", err)
		}
	}
	return nil
}

func (r *Runner) recordFailure(ctx context.Context, logger *slog.Logger, job Job, cause error) {
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("source", job.Source),
		logging.String("error_code", services.Code(cause)),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, failureHint(cause)),
	)
	if r.store == nil || job.ID == "" {
		return
	}
	// The job context may already be cancelled; the outcome still needs recording.
	if err := r.store.Fail(context.WithoutCancel(ctx), job.ID, cause); err != nil {
		logger.Warn("failed to record job failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_record_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return "check transcription.api_key"
	case errors.Is(err, services.ErrRateLimited):
		return "provider is rate limiting; retry later or raise retry.max_delay_ms"
	case errors.Is(err, services.ErrExternalTool):
		return "check ffmpeg/ffprobe installation and the input file"
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidRequest):
		return "check the input file and job options"
	default:
		return "check logs for details"
	}
}

func (r *Runner) execute(ctx context.Context, job Job, logger *slog.Logger) (Output, error) {
	dir, err := r.staging.JobDir(job.ID)
	if err != nil {
		return Output{}, err
	}
	lock, err := r.staging.Lock(dir)
	if err != nil {
		return Output{}, services.Wrap(services.ErrTransient, "pipeline", "lock staging", dir, err)
	}
	defer func() {
		_ = lock.Unlock()
		r.staging.Cleanup(dir)
	}()
	if gib := r.cfg.Chunking.MinFreeGiB; gib > 0 {
		if err := r.staging.EnsureFreeSpace(uint64(gib * (1 << 30))); err != nil {
			return Output{}, err
		}
	}

	source := job.Source
	if job.ExtractAudio {
		converted := filepath.Join(dir, "audio.mp3")
		if err := r.chunker.Convert(services.WithStage(ctx, "convert"), source, job.AudioStream, converted); err != nil {
			return Output{}, err
		}
		source = converted
	}

	chunks, err := r.split(services.WithStage(ctx, "chunking"), source, dir)
	if err != nil {
		return Output{}, err
	}

	tctx := services.WithStage(ctx, "transcription")
	transcript, err := r.transcribe(tctx, job, chunks)
	if err != nil {
		return Output{}, err
	}

	return r.finish(services.WithStage(ctx, "optimize"), job, transcript, len(chunks), logger)
}

// split returns the source as a single chunk when it fits the upload limit,
// otherwise the chunker's pieces.
func (r *Runner) split(ctx context.Context, source, dir string) ([]audio.Chunk, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "stat audio", source, err)
	}
	logger := logging.WithContext(ctx, r.logger)
	if info.Size() <= r.chunker.Limit() {
		logger.Debug("chunking decision", logging.Args(append(
			logging.DecisionAttrs("chunking", "skipped", "source within upload limit"),
			logging.Int64("size_bytes", info.Size()),
		)...)...)
		return []audio.Chunk{{Path: source, Original: true}}, nil
	}
	logger.Debug("chunking decision", logging.Args(append(
		logging.DecisionAttrs("chunking", "split", "source exceeds upload limit"),
		logging.Int64("size_bytes", info.Size()),
		logging.Int64("limit_bytes", r.chunker.Limit()),
	)...)...)
	return r.chunker.Chunk(ctx, source, dir)
}

// transcript is the combined, absolutely timed output of every chunk.
type transcript struct {
	segments []subtitles.Segment
	words    []subtitles.Word
	tokens   []tokenSpan
	averages []transcription.SpanLogprob
	duration float64
}

// tokenSpan holds provider token logprobs that carry no timing, scoped to
// the chunk they came from.
type tokenSpan struct {
	start, end float64
	logprobs   []float64
}

func (r *Runner) transcribe(ctx context.Context, job Job, chunks []audio.Chunk) (transcript, error) {
	caps := r.provider.Capabilities()
	var (
		out      transcript
		previous string
	)
	for i, chunk := range chunks {
		cctx := services.WithChunkIndex(ctx, chunk.Index)
		req := transcription.Request{FilePath: chunk.Path, Language: job.Language}
		if caps.Prompt {
			req.Prompt = tailChars(previous, PromptChars)
		}

		res, err := r.provider.Transcribe(cctx, req)
		if err == nil && !caps.NativeTiming && chunk.Duration() <= 0 && res.Duration <= 0 {
			var d float64
			d, err = ffprobe.Duration(cctx, r.probe, r.cfg.FFprobeBinary(), chunk.Path)
			if err != nil {
				err = services.Wrap(services.ErrExternalTool, "pipeline", "probe chunk", chunk.Path, err)
			}
			res.Duration = d
		}
		r.removeChunk(cctx, chunk)
		if err != nil {
			for _, rest := range chunks[i+1:] {
				r.removeChunk(cctx, rest)
			}
			return transcript{}, err
		}

		var segs []subtitles.Segment
		if caps.NativeTiming {
			result := alignment.DefaultOptions().Run(subtitles.ParseCues(res.CueText), res.Words)
			segs = result.Segments
			logging.WithContext(cctx, r.logger).Debug("chunk aligned",
				logging.Int("segments", len(segs)),
				logging.Int("corrected", result.Corrected),
				logging.Int("clamped", result.Clamped),
				logging.Int("nudged", result.Nudged),
			)
		} else {
			segs = optimizer.SingleSegment(res.PlainText(), chunkSpan(chunk, res))
		}

		segs = alignment.Offset(segs, chunk.Start)
		out.segments = append(out.segments, segs...)
		out.words = append(out.words, alignment.OffsetWords(res.Words, chunk.Start)...)
		for _, a := range res.Averages {
			a.Start += chunk.Start
			a.End += chunk.Start
			out.averages = append(out.averages, a)
		}
		end := chunk.Start + chunkSpan(chunk, res)
		if len(res.Logprobs) > 0 {
			out.tokens = append(out.tokens, tokenSpan{start: chunk.Start, end: end, logprobs: res.Logprobs})
		}
		if end > out.duration {
			out.duration = end
		}
		if n := len(out.segments); n > 0 && out.segments[n-1].End > out.duration {
			out.duration = out.segments[n-1].End
		}
		previous = res.PlainText()
	}
	return out, nil
}

// chunkSpan returns the chunk's length, preferring the planned boundaries.
func chunkSpan(chunk audio.Chunk, res transcription.Result) float64 {
	if d := chunk.Duration(); d > 0 {
		return d
	}
	return res.Duration
}

func (r *Runner) removeChunk(ctx context.Context, chunk audio.Chunk) {
	if err := audio.Remove(chunk); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to delete chunk file", "chunk_cleanup_failed",
			logging.String("path", chunk.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "staging cleanup removes the directory afterwards"),
			logging.String(logging.FieldImpact, "temporary disk usage until the job ends"),
		)
	}
}

func (r *Runner) finish(ctx context.Context, job Job, t transcript, chunks int, logger *slog.Logger) (Output, error) {
	segments := t.segments
	filtered := 0
	if r.cfg.Optimizer.FilterHallucinations {
		result := subtitles.FilterHallucinations(segments, t.duration)
		subtitles.LogFilterSummary(ctx, logger, result)
		segments = result.Segments
		filtered = len(result.Removals)
	}

	caps := r.provider.Capabilities()
	policy := optimizer.PolicyFor(job.Language, r.cfg.Optimizer.TrustNativeTiming && caps.NativeTiming)
	optimized := optimizer.Run(segments, policy)
	segments = optimized.Segments
	logger.Debug("segments optimized",
		logging.Int("segments", len(segments)),
		logging.Int("dropped", optimized.Dropped),
		logging.Int("extended", optimized.Extended),
		logging.Int("split", optimized.Split),
		logging.Int("merged", optimized.Merged),
	)

	content, err := subtitles.Render(job.Format, segments)
	if err != nil {
		return Output{}, services.Wrap(services.ErrValidation, "pipeline", "render", "format subtitles", err)
	}
	if err := fileutil.WriteAtomic(job.OutputPath, []byte(content)); err != nil {
		return Output{}, fmt.Errorf("write subtitles: %w", err)
	}

	opts := quality.Options{
		LowLogprob:          r.cfg.Quality.LowLogprob,
		VeryLowLogprob:      r.cfg.Quality.VeryLowLogprob,
		HallucinationStreak: r.cfg.Quality.HallucinationStreak,
		Averages:            attributeAverages(segments, t.averages),
	}
	gate := quality.RunGateWith(segments, r.cfg.Quality.Threshold, job.Language,
		attributeLogprobs(segments, t.words, t.tokens), opts)
	if !gate.Pass {
		logging.WarnWithContext(logger, "subtitle quality gate failed", "quality_gate_failed",
			logging.Float64("score", gate.Score),
			logging.Float64("threshold", gate.Threshold),
			logging.String("failures", strings.Join(gate.CategoryFailures, "; ")),
			logging.String(logging.FieldErrorHint, "review the subtitle file before publishing"),
			logging.String(logging.FieldImpact, "subtitles written but below the quality bar"),
		)
	}

	return Output{
		OutputPath: job.OutputPath,
		Content:    content,
		Segments:   segments,
		Chunks:     chunks,
		Filtered:   filtered,
		Gate:       gate,
	}, nil
}

// tailChars returns at most n trailing characters of s, cut at a word
// boundary when one exists inside the window.
func tailChars(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	tail := string(runes[len(runes)-n:])
	if i := strings.IndexByte(tail, ' '); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return tail
}
