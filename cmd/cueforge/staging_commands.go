package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cueforge/internal/jobstore"
	"cueforge/internal/logging"
	"cueforge/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage per-job staging directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			dirs, err := staging.New(stagingDir, logging.NewNop()).List()
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			if len(dirs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No staging directories found")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{
					shortID(dir.Name),
					humanize.Time(dir.ModTime),
					humanize.IBytes(uint64(dir.Size)),
					yesNo(dir.Locked),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Job", "Modified", "Size", "Locked"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanize.IBytes(uint64(totalSize)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover staging directories",
		Long: `Remove staging directories left behind by interrupted jobs.

By default, removes directories whose job is not pending or running in the
job database. With --max-age, removes directories older than the given age
instead. Use --all to remove every directory. Directories locked by a
running job are always skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			mgr := staging.New(cfg.Paths.StagingDir, logger)

			var result staging.CleanResult
			scope := "orphaned"
			switch {
			case cleanAll:
				scope = "all"
				result = mgr.CleanStale(cmd.Context(), 0)
			case maxAge > 0:
				scope = "older than " + maxAge.String()
				result = mgr.CleanStale(cmd.Context(), maxAge)
			default:
				err = ctx.withStore(func(store *jobstore.Store) error {
					active, err := store.ActiveIDs(cmd.Context())
					if err != nil {
						return err
					}
					result = mgr.CleanOrphaned(cmd.Context(), active)
					return nil
				})
				if err != nil {
					return err
				}
			}

			if ctx.JSONMode() {
				errs := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				return writeJSON(cmd, map[string]any{
					"scope":   scope,
					"removed": len(result.Removed),
					"skipped": len(result.Skipped),
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintf(out, "No %s staging directories to remove\n", scope)
			} else {
				fmt.Fprintf(out, "Removed %d %s staging directories\n", len(result.Removed), scope)
			}
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d locked directories\n", len(result.Skipped))
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d staging directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all unlocked staging directories")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove directories older than this age (e.g. 24h)")
	cmd.MarkFlagsMutuallyExclusive("all", "max-age")

	return cmd
}
