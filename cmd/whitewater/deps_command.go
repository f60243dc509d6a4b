package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"whitewater/internal/deps"
	"whitewater/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries and writable directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			dirs := preflight.RunAll(cfg)

			if jsonOut {
				return writeJSON(cmd, struct {
					Config       string             `json:"config"`
					Dependencies []deps.Status      `json:"dependencies"`
					Directories  []preflight.Result `json:"directories"`
				}{ctx.configPath, statuses, dirs})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Directories", colorize))
			for _, line := range directoryLines(dirs, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	return cmd
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := deps.Missing(statuses)
	if len(missing) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, "All dependencies available", colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError,
			fmt.Sprintf("%d missing; video input cannot be encoded", len(missing)), colorize))
	}
	for _, dep := range statuses {
		if dep.Available {
			message := fmt.Sprintf("Ready (%s)", dep.Path)
			if dep.Version != "" {
				message = fmt.Sprintf("%s (%s)", dep.Version, dep.Path)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func directoryLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
