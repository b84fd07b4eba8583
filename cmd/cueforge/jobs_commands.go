package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cueforge/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded generation jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsResetCommand(ctx))
	return jobsCmd
}

type jobJSON struct {
	ID               string   `json:"id"`
	Source           string   `json:"source"`
	Language         string   `json:"language,omitempty"`
	Provider         string   `json:"provider,omitempty"`
	Status           string   `json:"status"`
	ErrorCode        string   `json:"error_code,omitempty"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	Segments         int      `json:"segments"`
	Chunks           int      `json:"chunks"`
	Score            *float64 `json:"score,omitempty"`
	QualityLevel     string   `json:"quality_level,omitempty"`
	GatePassed       *bool    `json:"gate_passed,omitempty"`
	CategoryFailures []string `json:"category_failures,omitempty"`
	OutputPath       string   `json:"output_path,omitempty"`
	CreatedAt        string   `json:"created_at"`
	ElapsedMS        int64    `json:"elapsed_ms,omitempty"`
}

func toJobJSON(job *jobstore.Job) jobJSON {
	return jobJSON{
		ID:               job.ID,
		Source:           job.Source,
		Language:         job.Language,
		Provider:         job.Provider,
		Status:           string(job.Status),
		ErrorCode:        job.ErrorCode,
		ErrorMessage:     job.ErrorMessage,
		Segments:         job.SegmentCount,
		Chunks:           job.ChunkCount,
		Score:            job.Score,
		QualityLevel:     job.QualityLevel,
		GatePassed:       job.GatePassed,
		CategoryFailures: job.CategoryFailures,
		OutputPath:       job.OutputPath,
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		ElapsedMS:        job.Elapsed().Milliseconds(),
	}
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *jobstore.Store) error {
				jobs, err := store.List(cmd.Context(), jobstore.ListOptions{Statuses: filter, Limit: limit})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					payload := make([]jobJSON, 0, len(jobs))
					for _, job := range jobs {
						payload = append(payload, toJobJSON(job))
					}
					return writeJSON(cmd, payload)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						string(job.Status),
						formatScore(job.Score),
						truncateCell(job.Source, 40),
						job.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Score", "Source", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, running, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum jobs to show (0 for all)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job by id or id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				job, err := store.FindByPrefix(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, toJobJSON(job))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", job.ID)
				fmt.Fprintf(out, "Source:    %s\n", job.Source)
				fmt.Fprintf(out, "Status:    %s\n", job.Status)
				fmt.Fprintf(out, "Language:  %s\n", job.Language)
				fmt.Fprintf(out, "Provider:  %s\n", job.Provider)
				fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Local().Format(time.RFC3339))
				if elapsed := job.Elapsed(); elapsed > 0 {
					fmt.Fprintf(out, "Elapsed:   %s\n", elapsed.Round(time.Millisecond))
				}
				if job.Status == jobstore.StatusFailed {
					fmt.Fprintf(out, "Error:     %s: %s\n", job.ErrorCode, job.ErrorMessage)
					return nil
				}
				if job.Status != jobstore.StatusCompleted {
					return nil
				}
				fmt.Fprintf(out, "Output:    %s\n", job.OutputPath)
				fmt.Fprintf(out, "Cues:      %d from %d chunk(s)\n", job.SegmentCount, job.ChunkCount)
				fmt.Fprintf(out, "Score:     %s (%s)\n", formatScore(job.Score), job.QualityLevel)
				if job.GatePassed != nil {
					fmt.Fprintf(out, "Gate:      %s\n", map[bool]string{true: "passed", false: "failed"}[*job.GatePassed])
				}
				for _, f := range job.CategoryFailures {
					fmt.Fprintf(out, "  - %s\n", f)
				}
				return nil
			})
		},
	}
}

func newJobsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Mark jobs left running by an interrupted process as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				n, err := store.ResetStuck(cmd.Context(), nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d stuck job(s)\n", n)
				return nil
			})
		},
	}
}

func parseStatuses(values []string) ([]jobstore.Status, error) {
	if len(values) == 0 {
		return nil, nil
	}
	valid := make(map[string]jobstore.Status)
	names := make([]string, 0, len(jobstore.Statuses()))
	for _, s := range jobstore.Statuses() {
		valid[string(s)] = s
		names = append(names, string(s))
	}
	out := make([]jobstore.Status, 0, len(values))
	for _, v := range values {
		s, ok := valid[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return nil, fmt.Errorf("unknown status %q (valid: %s)", v, strings.Join(names, ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}
