package preflight

import (
	"context"
	"fmt"
	"strings"

	"whitewater/internal/config"
	"whitewater/internal/deps"
	"whitewater/internal/failures"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll reports on the directories whitewater writes to. The deps command
// prints these next to the binary checks.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckCreatable("State directory", cfg.Paths.StateDir),
		CheckCreatable("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckCreatable("Output directory", cfg.Paths.OutputDir))
	}
	return results
}

// CheckSystemDeps evaluates the external binaries configured in cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, deps.FFmpegRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// CheckEncode verifies an encode can start: the input is readable, the output
// location is writable, and video input has ffmpeg and ffprobe available.
func CheckEncode(ctx context.Context, cfg *config.Config, input, outputDir string, video bool) error {
	if r := CheckReadable("input", input); !r.Passed {
		return failures.Wrap(failures.ErrFrameSource, "preflight", "input", r.Detail, nil)
	}
	if r := CheckCreatable("output", outputDir); !r.Passed {
		return failures.Wrap(failures.ErrPersistence, "preflight", "output", r.Detail, nil)
	}
	if !video {
		return nil
	}
	missing := deps.Missing(CheckSystemDeps(ctx, cfg))
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, m.Command)
	}
	return failures.Wrap(failures.ErrFrameSource, "preflight", "dependencies",
		fmt.Sprintf("missing %s (run 'whitewater deps')", strings.Join(names, ", ")), nil)
}
