// Package whisperx runs WhisperX locally through uvx as a transcription
// backend. WhisperX produces sentence-level WebVTT cues plus forced-aligned
// word timing, so results carry native timing and word timestamps.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"cueforge/internal/language"
	"cueforge/internal/services"
	"cueforge/internal/subtitles"
	"cueforge/internal/transcription"
)

const stageName = "transcription"

// CommandRunner executes an external command, returning combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Ensure Provider implements the transcription.Provider interface.
var _ transcription.Provider = (*Provider)(nil)

// Provider implements transcription.Provider with the WhisperX CLI.
type Provider struct {
	cfg Config
	run CommandRunner
}

// New creates a WhisperX provider with the given configuration.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg, run: execRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Provider) WithCommandRunner(run CommandRunner) *Provider {
	if run != nil {
		p.run = run
	}
	return p
}

// Name implements transcription.Provider.
func (p *Provider) Name() string { return "whisperx" }

// Model returns the configured model name for logging.
func (p *Provider) Model() string {
	if p.cfg.Model != "" {
		return p.cfg.Model
	}
	return DefaultModel
}

// Capabilities implements transcription.Provider. WhisperX reads local files
// so there is no upload ceiling, and its CLI has no prompt flag wired here.
func (p *Provider) Capabilities() transcription.Capabilities {
	return transcription.Capabilities{
		NativeTiming:   true,
		WordTimestamps: true,
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// Transcribe implements transcription.Provider. Output files are written to a
// scratch directory beside the input and removed before returning.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	source := strings.TrimSpace(req.FilePath)
	if source == "" {
		return transcription.Result{}, services.Wrap(services.ErrValidation, stageName, "whisperx", "source path required", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return transcription.Result{}, services.Wrap(services.ErrValidation, stageName, "whisperx", source, err)
	}

	outputDir, err := os.MkdirTemp(filepath.Dir(source), "whisperx-")
	if err != nil {
		return transcription.Result{}, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "create output dir", err)
	}
	defer os.RemoveAll(outputDir)

	args := p.buildArgs(source, outputDir, req)
	if output, err := p.run(ctx, UVXCommand, args...); err != nil {
		// WhisperX crashes are treated like provider failures so they retry.
		return transcription.Result{}, services.Wrap(services.ErrTranscriptionFailed, stageName, "whisperx",
			lastLine(string(output)), err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	cueText, err := os.ReadFile(filepath.Join(outputDir, baseName+".vtt"))
	if err != nil {
		return transcription.Result{}, services.Wrap(services.ErrTranscriptionFailed, stageName, "whisperx", "missing vtt output", err)
	}
	segments, err := LoadSegments(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return transcription.Result{}, services.Wrap(services.ErrTranscriptionFailed, stageName, "whisperx", "missing json output", err)
	}

	result := transcription.Result{CueText: string(cueText)}
	var parts []string
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
		for _, w := range seg.Words {
			// Words WhisperX could not align come back without timing.
			if w.Start == nil || w.End == nil {
				continue
			}
			result.Words = append(result.Words, subtitles.Word{
				Word:  strings.TrimSpace(w.Word),
				Start: *w.Start,
				End:   *w.End,
			})
		}
		if seg.End > result.Duration {
			result.Duration = seg.End
		}
	}
	result.Text = strings.Join(parts, " ")
	return result, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (p *Provider) buildArgs(source, outputDir string, req transcription.Request) []string {
	args := make([]string, 0, 40)

	if p.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := p.Model()
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := p.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && p.cfg.HFToken != "" {
		args = append(args, "--hf_token", p.cfg.HFToken)
	}

	if lang := language.ToISO2(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if p.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Word represents a single word with timing from WhisperX output. Start and
// End are absent for tokens the aligner could not place.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score float64  `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p.Segments, nil
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if i := strings.LastIndexByte(output, '\n'); i >= 0 {
		return output[i+1:]
	}
	return output
}
