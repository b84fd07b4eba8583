package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"cueforge/internal/logging"
	"cueforge/internal/media/ffprobe"
	"cueforge/internal/services"
)

const (
	// DefaultLimitBytes is the upload ceiling shared by hosted Whisper APIs.
	DefaultLimitBytes = 25 * 1024 * 1024
	// DefaultNoiseDB is the silencedetect noise floor.
	DefaultNoiseDB = -30
	// DefaultMinSilence is the minimum pause length, in seconds, treated as silence.
	DefaultMinSilence = 2.0
	// DefaultTrailingWindow discards split points this close to the end of the file.
	DefaultTrailingWindow = 2.0

	stageName = "chunking"
)

var silenceEndPattern = regexp.MustCompile(`silence_end:\s*([\d.]+)`)

// Chunk is one piece of the source audio ready for submission.
type Chunk struct {
	Path  string
	Index int
	// Start and End are offsets in the source file, in seconds.
	Start float64
	End   float64
	// Original is true when Path is the untouched input file. Callers must
	// not delete it.
	Original bool
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Chunker runs ffmpeg to split audio files.
type Chunker struct {
	ffmpeg         string
	ffprobe        string
	limit          int64
	noiseDB        int
	minSilence     float64
	trailingWindow float64
	run            ffprobe.Runner
	logger         *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(c *Chunker) {
		if strings.TrimSpace(ffmpegBin) != "" {
			c.ffmpeg = ffmpegBin
		}
		if strings.TrimSpace(ffprobeBin) != "" {
			c.ffprobe = ffprobeBin
		}
	}
}

// WithLimit sets the maximum chunk size in bytes.
func WithLimit(bytes int64) Option {
	return func(c *Chunker) {
		if bytes > 0 {
			c.limit = bytes
		}
	}
}

// WithSilence sets the silencedetect noise floor and minimum silence length.
func WithSilence(noiseDB int, minSilence float64) Option {
	return func(c *Chunker) {
		if noiseDB < 0 {
			c.noiseDB = noiseDB
		}
		if minSilence > 0 {
			c.minSilence = minSilence
		}
	}
}

// WithTrailingWindow sets how close to the end a split point may fall.
func WithTrailingWindow(seconds float64) Option {
	return func(c *Chunker) {
		if seconds >= 0 {
			c.trailingWindow = seconds
		}
	}
}

// WithRunner injects the command runner used for ffmpeg and ffprobe.
func WithRunner(run ffprobe.Runner) Option {
	return func(c *Chunker) {
		if run != nil {
			c.run = run
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		c.logger = logger
	}
}

// New builds a Chunker with the default thresholds.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		ffmpeg:         "ffmpeg",
		ffprobe:        "ffprobe",
		limit:          DefaultLimitBytes,
		noiseDB:        DefaultNoiseDB,
		minSilence:     DefaultMinSilence,
		trailingWindow: DefaultTrailingWindow,
		run:            ffprobe.ExecRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "chunker")
	return c
}

// Limit returns the configured size ceiling in bytes.
func (c *Chunker) Limit() int64 {
	return c.limit
}

// Chunk splits path into pieces written under outDir. Chunks are returned in
// playback order. On failure nothing is left behind in outDir.
func (c *Chunker) Chunk(ctx context.Context, path, outDir string) ([]Chunk, error) {
	logger := logging.WithContext(ctx, c.logger)

	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "stat input", "audio file is not readable", err)
	}
	size := info.Size()

	duration, err := ffprobe.Duration(ctx, c.run, c.ffprobe, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "probe duration", "ffprobe failed", err)
	}

	points, err := c.detectSilence(ctx, path)
	if err != nil {
		return nil, err
	}
	points = c.usablePoints(points, duration)

	logger.Debug("silence detection complete",
		logging.Int("split_points", len(points)),
		logging.Float64("duration_seconds", duration),
		logging.Int64("size_bytes", size),
	)

	if len(points) == 0 {
		if size <= c.limit {
			logger.Info("audio within size limit; submitting original",
				logging.String(logging.FieldEventType, "chunking_skipped"),
				logging.Int64("size_bytes", size),
			)
			return []Chunk{{Path: path, Index: 0, Start: 0, End: duration, Original: true}}, nil
		}
		pieces := int(math.Ceil(float64(size) / float64(c.limit)))
		logging.WarnWithContext(logger, "no usable silence found; splitting into equal pieces",
			"chunking_equal_split",
			logging.Int("pieces", pieces),
			logging.String(logging.FieldErrorHint, "lower chunking.noise_db or min_silence_seconds to find more pauses"),
			logging.String(logging.FieldImpact, "chunk boundaries may fall mid-sentence"),
		)
		return c.splitEqual(ctx, path, outDir, duration, pieces)
	}

	return c.splitAt(ctx, path, outDir, duration, points)
}

func (c *Chunker) detectSilence(ctx context.Context, path string) ([]float64, error) {
	args := []string{
		"-hide_banner", "-nostats",
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f", c.noiseDB, c.minSilence),
		"-f", "null", "-",
	}
	output, err := c.run(ctx, c.ffmpeg, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "silencedetect",
			strings.TrimSpace(lastLines(string(output), 3)), err)
	}
	return ParseSilenceEnds(string(output)), nil
}

// ParseSilenceEnds extracts the silence_end timestamps from ffmpeg's
// diagnostic output, in the order they appear.
func ParseSilenceEnds(output string) []float64 {
	var points []float64
	for _, match := range silenceEndPattern.FindAllStringSubmatch(output, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil || math.IsNaN(value) || value <= 0 {
			continue
		}
		points = append(points, value)
	}
	return points
}

// usablePoints sorts and dedupes the split points, drops anything outside the
// file, and discards a final point inside the trailing window.
func (c *Chunker) usablePoints(points []float64, duration float64) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if p > 0 && p < duration {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if n := len(out); n > 0 && duration-out[n-1] <= c.trailingWindow {
		out = out[:n-1]
	}
	return out
}

func (c *Chunker) splitAt(ctx context.Context, path, outDir string, duration float64, points []float64) ([]Chunk, error) {
	times := make([]string, len(points))
	for i, p := range points {
		times[i] = strconv.FormatFloat(p, 'f', 3, 64)
	}
	files, err := c.segment(ctx, path, outDir, "-segment_times", strings.Join(times, ","))
	if err != nil {
		return nil, err
	}
	bounds := append(append([]float64{0}, points...), duration)
	return buildChunks(files, bounds), nil
}

func (c *Chunker) splitEqual(ctx context.Context, path, outDir string, duration float64, pieces int) ([]Chunk, error) {
	step := duration / float64(pieces)
	files, err := c.segment(ctx, path, outDir, "-segment_time", strconv.FormatFloat(step, 'f', 3, 64))
	if err != nil {
		return nil, err
	}
	bounds := make([]float64, 0, pieces+1)
	for i := range pieces {
		bounds = append(bounds, float64(i)*step)
	}
	bounds = append(bounds, duration)
	return buildChunks(files, bounds), nil
}

// segment runs the ffmpeg segment muxer and returns the produced files in
// lexicographic order, which matches playback order thanks to zero padding.
func (c *Chunker) segment(ctx context.Context, path, outDir string, splitFlag, splitValue string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "create output dir", outDir, err)
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".wav"
	}
	pattern := filepath.Join(outDir, "chunk_%04d"+ext)
	args := []string{
		"-hide_banner", "-nostats", "-y",
		"-i", path,
		"-f", "segment",
		splitFlag, splitValue,
		"-reset_timestamps", "1",
		"-c", "copy",
		pattern,
	}
	output, err := c.run(ctx, c.ffmpeg, args...)
	if err != nil {
		removeChunks(outDir)
		return nil, services.Wrap(services.ErrExternalTool, stageName, "segment",
			strings.TrimSpace(lastLines(string(output), 3)), err)
	}
	files, err := filepath.Glob(filepath.Join(outDir, "chunk_*"+ext))
	if err != nil || len(files) == 0 {
		removeChunks(outDir)
		return nil, services.Wrap(services.ErrExternalTool, stageName, "segment", "ffmpeg produced no chunk files", err)
	}
	slices.Sort(files)
	return files, nil
}

// buildChunks pairs produced files with the planned boundaries. ffmpeg may
// emit one file more or fewer than planned when cuts land on packet edges; the
// last chunk always extends to the end of the source.
func buildChunks(files []string, bounds []float64) []Chunk {
	chunks := make([]Chunk, len(files))
	last := bounds[len(bounds)-1]
	for i, file := range files {
		start := last
		if i < len(bounds)-1 {
			start = bounds[i]
		}
		end := last
		if i+1 < len(bounds)-1 && i < len(files)-1 {
			end = bounds[i+1]
		}
		chunks[i] = Chunk{Path: file, Index: i, Start: start, End: end}
	}
	return chunks
}

func removeChunks(outDir string) {
	files, _ := filepath.Glob(filepath.Join(outDir, "chunk_*"))
	for _, f := range files {
		_ = os.Remove(f)
	}
}

// Remove deletes a chunk file unless it is the caller's original input.
func Remove(c Chunk) error {
	if c.Original || c.Path == "" {
		return nil
	}
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
