package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"whitewater/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a normalized config whose directories live under a
// per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize test config: %v", err)
	}
	return builder.cfg
}

// WithBlockSize switches the config to square cells of size pixels.
func WithBlockSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.BlockSize = size
		b.cfg.Encoder.GridRows = 0
		b.cfg.Encoder.GridCols = 0
	}
}

// WithGridShape switches the config to a fixed rows x cols grid.
func WithGridShape(rows, cols int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.BlockSize = 0
		b.cfg.Encoder.GridRows = rows
		b.cfg.Encoder.GridCols = cols
	}
}

// WithFormat sets the tile image format.
func WithFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.Format = format
	}
}

// WithHistory toggles the encode history database.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. The stubs exit successfully without output.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeStub(b.t, binDir, name, "exit 0\n")
		}
		prependPath(b.t, binDir)
	}
}

// StubBinary writes an executable shell script named name whose body is
// script, prepends its directory to PATH for the rest of the test, and
// returns the script path.
func StubBinary(t testing.TB, name, script string) string {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "bin")
	target := writeStub(t, binDir, name, script)
	prependPath(t, binDir)
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

func writeStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
