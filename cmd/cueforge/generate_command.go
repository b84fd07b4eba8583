package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cueforge/internal/deps"
	"cueforge/internal/jobstore"
	"cueforge/internal/pipeline"
	"cueforge/internal/preflight"
	"cueforge/internal/subtitles"
)

type generateOptions struct {
	format        string
	language      string
	output        string
	extractAudio  bool
	audioStream   int
	skipPreflight bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <audio>...",
		Short: "Transcribe audio files into subtitle files",
		Long: `Transcribe one or more audio files into WebVTT or SRT subtitles.

Oversized audio is split at silences before upload, cues are shaped for
readability, and every result is scored by the quality gate. Several inputs
run concurrently, bounded by workers.max_workers.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && len(args) > 1 {
				return errors.New("--output only applies to a single input")
			}
			return runGenerate(cmd, ctx, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", subtitles.FormatNameVTT, "Output format (vtt or srt)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Spoken language (defaults to transcription.language)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path (single input only)")
	cmd.Flags().BoolVar(&opts.extractAudio, "extract-audio", false, "Convert the input to compressed mono audio before chunking")
	cmd.Flags().IntVar(&opts.audioStream, "audio-stream", 0, "Audio stream index used with --extract-audio")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip provider and directory checks")
	return cmd
}

func runGenerate(cmd *cobra.Command, ctx *commandContext, opts generateOptions, inputs []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runCtx := cmd.Context()

	if err := deps.Require(preflight.CheckSystemDeps(cfg)); err != nil {
		return err
	}
	if !opts.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
			parts := make([]string, 0, len(failed))
			for _, f := range failed {
				parts = append(parts, f.Name+": "+f.Detail)
			}
			return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
		}
	}

	provider, err := pipeline.NewProvider(cfg, logger)
	if err != nil {
		return err
	}

	language := strings.TrimSpace(opts.language)
	if language == "" {
		language = cfg.Transcription.Language
	}

	jobs := make([]pipeline.Job, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, pipeline.Job{
			Source:       input,
			Language:     language,
			Format:       opts.format,
			OutputPath:   opts.output,
			ExtractAudio: opts.extractAudio,
			AudioStream:  opts.audioStream,
		})
	}

	return ctx.withStore(func(store *jobstore.Store) error {
		runner := pipeline.NewRunner(cfg, provider,
			pipeline.WithStore(store),
			pipeline.WithLogger(logger),
		)

		var results []pipeline.BatchResult
		if len(jobs) == 1 {
			out, runErr := runner.Run(runCtx, jobs[0])
			results = []pipeline.BatchResult{{Job: jobs[0], Output: out, Err: runErr}}
		} else {
			pool := pipeline.NewPool(cfg.Workers.MaxWorkers)
			defer pool.Close()
			var batchErr error
			results, batchErr = runner.RunBatch(runCtx, pool, jobs)
			if batchErr != nil && len(results) == 0 {
				return batchErr
			}
		}
		return reportGenerate(cmd, ctx, results)
	})
}

type generateResultJSON struct {
	Source       string   `json:"source"`
	JobID        string   `json:"job_id,omitempty"`
	OutputPath   string   `json:"output_path,omitempty"`
	Segments     int      `json:"segments"`
	Chunks       int      `json:"chunks"`
	Filtered     int      `json:"filtered"`
	Score        float64  `json:"score"`
	QualityLevel string   `json:"quality_level,omitempty"`
	GatePassed   bool     `json:"gate_passed"`
	Failures     []string `json:"category_failures,omitempty"`
	ElapsedMS    int64    `json:"elapsed_ms"`
	Error        string   `json:"error,omitempty"`
}

func reportGenerate(cmd *cobra.Command, ctx *commandContext, results []pipeline.BatchResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if ctx.JSONMode() {
		payload := make([]generateResultJSON, 0, len(results))
		for _, r := range results {
			item := generateResultJSON{
				Source:       r.Job.Source,
				JobID:        r.Output.JobID,
				OutputPath:   r.Output.OutputPath,
				Segments:     len(r.Output.Segments),
				Chunks:       r.Output.Chunks,
				Filtered:     r.Output.Filtered,
				Score:        r.Output.Gate.Score,
				QualityLevel: r.Output.Gate.QualityLevel,
				GatePassed:   r.Output.Gate.Pass,
				Failures:     r.Output.Gate.CategoryFailures,
				ElapsedMS:    r.Output.Elapsed.Milliseconds(),
			}
			if r.Err != nil {
				item.Error = r.Err.Error()
			}
			payload = append(payload, item)
		}
		if err := writeJSON(cmd, payload); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				rows = append(rows, []string{truncateCell(r.Job.Source, 40), "failed", "-", "-", "-", truncateCell(r.Err.Error(), 60)})
				continue
			}
			gate := "pass"
			if !r.Output.Gate.Pass {
				gate = "below threshold"
			}
			rows = append(rows, []string{
				truncateCell(r.Job.Source, 40),
				r.Output.Gate.QualityLevel,
				fmt.Sprintf("%.1f", r.Output.Gate.Score),
				strconv.Itoa(len(r.Output.Segments)),
				strconv.Itoa(r.Output.Chunks),
				gate + " → " + r.Output.OutputPath,
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTable(
			[]string{"Source", "Quality", "Score", "Cues", "Chunks", "Result"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}
