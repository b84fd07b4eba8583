package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cueforge/internal/audio"
	"cueforge/internal/deps"
	"cueforge/internal/preflight"
	"cueforge/internal/subtitles"
)

type chunkJSON struct {
	Index int     `json:"index"`
	Path  string  `json:"path"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Bytes int64   `json:"bytes"`
}

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var limitMB int

	cmd := &cobra.Command{
		Use:   "chunk <audio>",
		Short: "Split audio at silences into upload-sized pieces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := deps.Require(preflight.CheckSystemDeps(cfg)); err != nil {
				return err
			}

			limit := cfg.MaxChunkBytes()
			if limitMB > 0 {
				limit = int64(limitMB) << 20
			}
			if outDir == "" {
				outDir = filepath.Dir(args[0])
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			chunker := audio.New(
				audio.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
				audio.WithLimit(limit),
				audio.WithSilence(int(cfg.Chunking.NoiseDB), cfg.Chunking.MinSilenceSeconds),
				audio.WithTrailingWindow(cfg.Chunking.TrailingSilenceSeconds),
				audio.WithLogger(logger),
			)
			chunks, err := chunker.Chunk(cmd.Context(), args[0], outDir)
			if err != nil {
				return err
			}

			items := make([]chunkJSON, 0, len(chunks))
			for _, c := range chunks {
				var size int64
				if info, statErr := os.Stat(c.Path); statErr == nil {
					size = info.Size()
				}
				items = append(items, chunkJSON{Index: c.Index, Path: c.Path, Start: c.Start, End: c.End, Bytes: size})
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, items)
			}

			rows := make([][]string, 0, len(items))
			for _, c := range items {
				end := "-"
				if c.End > 0 {
					end = subtitles.FormatVTTTimestamp(c.End)
				}
				rows = append(rows, []string{
					strconv.Itoa(c.Index),
					subtitles.FormatVTTTimestamp(c.Start),
					end,
					humanize.IBytes(uint64(c.Bytes)),
					c.Path,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Start", "End", "Size", "Path"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for chunk files (defaults to the input's directory)")
	cmd.Flags().IntVar(&limitMB, "limit-mb", 0, "Chunk size limit in MiB (defaults to transcription.max_chunk_mb)")
	return cmd
}
