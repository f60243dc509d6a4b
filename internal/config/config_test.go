package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"whitewater/internal/config"
	"whitewater/internal/failures"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if want := filepath.Join(tempHome, ".config", "whitewater", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if cfg.Encoder.BlockSize != config.DefaultBlockSize {
		t.Fatalf("block size = %d, want %d", cfg.Encoder.BlockSize, config.DefaultBlockSize)
	}
	if cfg.Encoder.Quality != 75 || cfg.Encoder.Threshold != 1.0 || cfg.Encoder.Format != "jpeg" {
		t.Fatalf("unexpected encoder defaults: %+v", cfg.Encoder)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("output dir should default to empty, got %q", cfg.Paths.OutputDir)
	}
	if want := filepath.Join(tempHome, ".local", "share", "whitewater", "history.db"); cfg.HistoryPath() != want {
		t.Fatalf("history path = %q, want %q", cfg.HistoryPath(), want)
	}
	if !cfg.History.Enabled {
		t.Fatal("history should be enabled by default")
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
}

func TestLoadProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	body := `
[encoder]
grid_rows = 4
grid_cols = 6
format = "PNG"

[manifest]
compress = true
`
	if err := os.WriteFile(filepath.Join(dir, "whitewater.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || filepath.Base(resolved) != "whitewater.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Encoder.BlockSize != 0 {
		t.Fatalf("grid shape should leave block size unset, got %d", cfg.Encoder.BlockSize)
	}
	if cfg.Encoder.GridRows != 4 || cfg.Encoder.GridCols != 6 {
		t.Fatalf("unexpected grid %dx%d", cfg.Encoder.GridRows, cfg.Encoder.GridCols)
	}
	if cfg.Encoder.Format != "png" {
		t.Fatalf("format = %q, want png", cfg.Encoder.Format)
	}
	if !cfg.Manifest.Compress {
		t.Fatal("expected manifest compression")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[encoder]\nblocksize = 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if !errors.Is(err, failures.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"both sizings", func(c *config.Config) { c.Encoder.GridRows, c.Encoder.GridCols = 2, 2 }, "mutually exclusive"},
		{"half shape", func(c *config.Config) { c.Encoder.BlockSize, c.Encoder.GridRows = 0, 3 }, "set together"},
		{"no sizing", func(c *config.Config) { c.Encoder.BlockSize = 0 }, "must be set"},
		{"threshold high", func(c *config.Config) { c.Encoder.Threshold = 256 }, "threshold"},
		{"threshold negative", func(c *config.Config) { c.Encoder.Threshold = -1 }, "threshold"},
		{"quality zero", func(c *config.Config) { c.Encoder.Quality = 0 }, ""},
		{"quality max", func(c *config.Config) { c.Encoder.Quality = 100 }, ""},
		{"quality negative", func(c *config.Config) { c.Encoder.Quality = -1 }, "quality"},
		{"quality high", func(c *config.Config) { c.Encoder.Quality = 101 }, "quality"},
		{"format", func(c *config.Config) { c.Encoder.Format = "webp" }, "format"},
		{"block exceeds tile", func(c *config.Config) { c.Encoder.BlockSize = 4096 }, "exceeds"},
		{"workers", func(c *config.Config) { c.Encoder.Workers = -2 }, "workers"},
		{"sample rate", func(c *config.Config) { c.Source.SampleRate = -1 }, "sample_rate"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if err := cfg.Normalize(); err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, failures.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}
}

func TestQualityZeroIsValid(t *testing.T) {
	cfg := config.Default()
	cfg.Encoder.Quality = 0
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("quality 0 rejected: %v", err)
	}
	if cfg.Encoder.Quality != 0 {
		t.Fatalf("quality = %d after Normalize, want 0", cfg.Encoder.Quality)
	}
}

func TestEnvLogLevelOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WHITEWATER_LOG_LEVEL", "DEBUG")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal([]byte(config.Sample()), &raw); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	for _, section := range []string{"paths", "encoder", "source", "manifest", "history", "logging"} {
		if _, ok := raw[section]; !ok {
			t.Fatalf("sample missing [%s]", section)
		}
	}
	t.Setenv("HOME", t.TempDir())
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/videos/../out")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if want := filepath.Join(home, "out"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs", "nested")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
