package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cueforge/internal/jobstore"
	"cueforge/internal/preflight"
)

type statusJSON struct {
	Dependencies []dependencyJSON `json:"dependencies"`
	Checks       []checkJSON      `json:"checks"`
	Jobs         map[string]int   `json:"jobs"`
}

type dependencyJSON struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

type checkJSON struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tool, provider, and job database status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			depStatuses := preflight.CheckSystemDeps(cfg)
			checks := preflight.RunAll(cmd.Context(), cfg)

			var stats map[jobstore.Status]int
			if err := ctx.withStore(func(store *jobstore.Store) error {
				stats, err = store.Stats(cmd.Context())
				return err
			}); err != nil {
				return err
			}

			if ctx.JSONMode() {
				payload := statusJSON{Jobs: make(map[string]int)}
				for _, d := range depStatuses {
					payload.Dependencies = append(payload.Dependencies, dependencyJSON{
						Name: d.Name, Command: d.Command, Optional: d.Optional, Available: d.Available, Detail: d.Detail,
					})
				}
				for _, c := range checks {
					payload.Checks = append(payload.Checks, checkJSON{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
				}
				for _, s := range jobstore.Statuses() {
					payload.Jobs[string(s)] = stats[s]
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			block := newStatusBlock(out)

			block.section("Dependencies")
			for _, d := range depStatuses {
				kind, msg := statusOK, d.Path
				if !d.Available {
					kind, msg = statusError, d.Detail
					if d.Optional {
						kind = statusWarn
					}
				}
				block.line(d.Name, kind, msg)
			}

			block.section("Checks")
			for _, c := range checks {
				kind := statusOK
				if !c.Passed {
					kind = statusError
				}
				block.line(c.Name, kind, c.Detail)
			}

			block.section("Jobs")
			for _, s := range jobstore.Statuses() {
				kind := statusInfo
				if s == jobstore.StatusFailed && stats[s] > 0 {
					kind = statusWarn
				}
				block.line(string(s), kind, strconv.Itoa(stats[s]))
			}

			fmt.Fprint(out, block.String())
			return nil
		},
	}
}
