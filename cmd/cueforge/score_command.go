package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cueforge/internal/quality"
	"cueforge/internal/subtitles"
)

const worstSegmentsShown = 10

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var language string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "score <subtitle-file>",
		Short: "Score an existing VTT or SRT file",
		Args:  cobra.ExactArgs(1),
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
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderScore(cmd.OutOrStdout(), args[0], result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "en", "Subtitle language code")
	cmd.Flags().Float64Var(&threshold, "threshold", quality.DefaultThreshold, "Pass mark shown alongside the score")
	return cmd
}

func scoreFile(path, language string, threshold float64) (quality.GateResult, error) {
	segments, err := subtitles.ParseFile(path)
	if err != nil {
		return quality.GateResult{}, fmt.Errorf("read subtitles: %w", err)
	}
	if len(segments) == 0 {
		return quality.GateResult{}, fmt.Errorf("%s contains no cues", path)
	}
	return quality.RunGate(segments, threshold, language, nil), nil
}

func renderScore(w io.Writer, path string, result quality.GateResult) string {
	report := result.Report
	block := newStatusBlock(w)
	block.section("Quality report: " + path)
	block.line("Score", qualityKind(result),
		fmt.Sprintf("%.1f (%s, threshold %.0f)", result.Score, report.QualityLevel, result.Threshold))
	block.line("Cues", statusInfo,
		fmt.Sprintf("%d over %s, %.1f cps average", report.SegmentCount,
			subtitles.FormatVTTTimestamp(report.TotalDuration), report.AverageCPS))
	for _, m := range report.Multipliers {
		block.line("Adjustment", statusWarn, fmt.Sprintf("×%.2f %s", m.Factor, m.Reason))
	}

	var sb strings.Builder
	sb.WriteString(block.String())
	sb.WriteByte('\n')

	rows := make([][]string, 0, len(report.Categories))
	for _, c := range report.Categories {
		if c.Violations == 0 {
			continue
		}
		rows = append(rows, []string{
			c.Category.Label(),
			strconv.Itoa(c.Violations),
			strconv.Itoa(c.SegmentsAffected),
			fmt.Sprintf("%.1f%%", c.Percent),
			fmt.Sprintf("%.1f", c.TotalDeduction),
		})
	}
	if len(rows) == 0 {
		sb.WriteString("No violations.\n")
		return sb.String()
	}
	sb.WriteString(renderTable(
		[]string{"Category", "Violations", "Cues", "Share", "Deduction"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))

	worst := worstSegments(report.Segments, worstSegmentsShown)
	if len(worst) == 0 {
		return sb.String()
	}
	segRows := make([][]string, 0, len(worst))
	for _, s := range worst {
		messages := make([]string, 0, len(s.Violations))
		for _, v := range s.Violations {
			messages = append(messages, v.Message)
		}
		segRows = append(segRows, []string{
			strconv.Itoa(s.Index + 1),
			subtitles.FormatVTTTimestamp(s.Start),
			fmt.Sprintf("%.0f", s.Score),
			truncateCell(s.Text, 36),
			truncateCell(strings.Join(messages, "; "), 48),
		})
	}
	sb.WriteString(renderTable(
		[]string{"#", "Start", "Score", "Text", "Issues"},
		segRows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return sb.String()
}

// worstSegments returns up to n violating segments, lowest score first.
func worstSegments(segments []quality.SegmentScore, n int) []quality.SegmentScore {
	var out []quality.SegmentScore
	for _, s := range segments {
		if len(s.Violations) > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
