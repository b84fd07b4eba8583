package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cueforge/internal/quality"
)

func newGateCommand(ctx *commandContext) *cobra.Command {
	var language string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "gate <subtitle-file>",
		Short: "Fail when a subtitle file scores below the threshold",
		Long: `Score a subtitle file and exit non-zero when it falls below the threshold.

Exit status is 0 on pass, 2 when the gate fails, and 1 for any other error,
so the command can guard CI or publishing steps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Quality.Threshold
			}
			result, err := scoreFile(args[0], language, threshold)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode() {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				block := newStatusBlock(out)
				verdict := "meets"
				if !result.Pass {
					verdict = "below"
				}
				block.line("Gate", qualityKind(result), fmt.Sprintf("score %.1f %s threshold %.1f (%s)",
					result.Score, verdict, result.Threshold, result.QualityLevel))
				fmt.Fprint(out, block.String())
				if !result.Pass {
					fmt.Fprint(out, quality.Describe(result))
				}
			}
			if !result.Pass {
				return &gateFailedError{score: result.Score, threshold: result.Threshold}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "en", "Subtitle language code")
	cmd.Flags().Float64Var(&threshold, "threshold", quality.DefaultThreshold, "Minimum passing score")
	return cmd
}
