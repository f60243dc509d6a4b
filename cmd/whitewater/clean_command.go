package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"whitewater/internal/config"
	"whitewater/internal/output"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]...",
		Short: "Remove staging directories left by interrupted encodes",
		Long: "Scan each directory for hidden staging directories whose encode is no\n" +
			"longer running and remove them. Defaults to paths.output_dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			dirs := args
			if len(dirs) == 0 {
				if cfg.Paths.OutputDir == "" {
					return errors.New("no directory given and paths.output_dir is not set")
				}
				dirs = []string{cfg.Paths.OutputDir}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var failed int
			for _, dir := range dirs {
				abs, err := config.ExpandPath(dir)
				if err != nil {
					return err
				}
				result := output.CleanOrphans(abs, logger)
				for _, removed := range result.Removed {
					fmt.Fprintln(out, renderStatusLine("Removed", statusOK, removed, colorize))
				}
				for _, e := range result.Errors {
					fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%s: %v", e.Path, e.Err), colorize))
				}
				if len(result.Removed) == 0 && len(result.Errors) == 0 {
					fmt.Fprintln(out, renderStatusLine(abs, statusInfo, "nothing to clean", colorize))
				}
				failed += len(result.Errors)
			}
			if failed > 0 {
				return fmt.Errorf("%d staging director(ies) could not be removed", failed)
			}
			return nil
		},
	}
}
