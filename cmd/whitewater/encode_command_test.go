package main

import (
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"whitewater/internal/failures"
	"whitewater/internal/manifest"
	"whitewater/internal/testsupport"
)

func writeMovingSequence(t *testing.T, dir string) {
	t.Helper()
	first := testsupport.GradientFrame(t, 0, 32, 24, 5)
	second := testsupport.Clone(first, 1)
	third := testsupport.Clone(first, 2)
	testsupport.ShiftRegion(third, image.Rect(8, 8, 16, 16), 90)
	writeSequence(t, dir, first, second, third)
}

func TestEncodeImageSequence(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)

	out, _, err := runCLI(t, env.configPath, "encode", input, "--block-size", "8", "--format", "png", "--no-progress")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	requireContains(t, out, "Encoded "+input)
	requireContains(t, out, manifest.FileName)

	outputDir := filepath.Join(env.cfg.Paths.OutputDir, "clip_whitewater")
	m, err := manifest.Read(filepath.Join(outputDir, manifest.FileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.FrameCount != 3 {
		t.Fatalf("frame count = %d, want 3", m.FrameCount)
	}
	if got := len(m.Frames[0].Cells); got != 12 {
		t.Fatalf("first frame cells = %d, want 12", got)
	}
	if got := len(m.Frames[1].Cells); got != 0 {
		t.Fatalf("unchanged frame cells = %d, want 0", got)
	}
	if got := len(m.Frames[2].Cells); got != 1 {
		t.Fatalf("changed frame cells = %d, want 1", got)
	}
	if m.Format != "png" {
		t.Fatalf("format = %q, want png", m.Format)
	}
	for _, tile := range m.Tiles {
		if _, err := os.Stat(filepath.Join(outputDir, tile.File)); err != nil {
			t.Fatalf("tile %s missing: %v", tile.File, err)
		}
	}

	out, _, err = runCLI(t, env.configPath, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []historyRunView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "succeeded" || runs[0].Frames != 3 {
		t.Fatalf("unexpected history %+v", runs)
	}

	out, _, err = runCLI(t, env.configPath, "history", "show", shortID(runs[0].ID))
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "32x24")
}

func TestEncodeJSONAndOutputFlag(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory(false))
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)
	target := filepath.Join(env.baseDir, "custom")

	out, _, err := runCLI(t, env.configPath, "encode", input, "-o", target, "--grid", "2x2", "--compress", "--json")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var reports []encodeReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	r := reports[0]
	if r.OutputDir != target || r.GridRows != 2 || r.GridCols != 2 || r.RunID != "" {
		t.Fatalf("unexpected report %+v", r)
	}
	if _, err := manifest.Read(filepath.Join(target, manifest.CompressedFileName)); err != nil {
		t.Fatalf("read compressed manifest: %v", err)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("history database should not be created, stat err = %v", err)
	}
}

func TestEncodeMultipleInputsUseOutputAsParent(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory(false))
	a := filepath.Join(env.baseDir, "a")
	b := filepath.Join(env.baseDir, "b")
	writeMovingSequence(t, a)
	writeMovingSequence(t, b)
	parent := filepath.Join(env.baseDir, "batch")

	if _, _, err := runCLI(t, env.configPath, "encode", a, b, "-o", parent, "--no-progress"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, name := range []string{"a_whitewater", "b_whitewater"} {
		if _, err := os.Stat(filepath.Join(parent, name, manifest.FileName)); err != nil {
			t.Fatalf("expected manifest for %s: %v", name, err)
		}
	}
}

func TestEncodeAcceptsQualityZero(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory(false))
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)
	target := filepath.Join(env.baseDir, "lowest")

	if _, _, err := runCLI(t, env.configPath, "encode", input, "-o", target, "--quality", "0", "--no-progress"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	m, err := manifest.Read(filepath.Join(target, manifest.FileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if m.Quality != 0 {
		t.Fatalf("manifest quality = %d, want 0", m.Quality)
	}
}

func TestEncodeRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)

	tests := []struct {
		name string
		args []string
	}{
		{"block and grid", []string{"--block-size", "8", "--grid", "2x2"}},
		{"bad grid", []string{"--grid", "two"}},
		{"threshold range", []string{"--threshold", "300"}},
		{"unknown format", []string{"--format", "bmp"}},
		{"block exceeds tile", []string{"--block-size", "64", "--max-tile", "32x32"}},
		{"quality negative", []string{"--quality", "-1"}},
		{"quality high", []string{"--quality", "101"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"encode", input}, tt.args...)
			_, _, err := runCLI(t, env.configPath, args...)
			if !errors.Is(err, failures.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestEncodeEmptyDirectoryRecordsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "empty")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, _, err := runCLI(t, env.configPath, "encode", input)
	if !errors.Is(err, failures.ErrFrameSource) {
		t.Fatalf("expected frame source error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "empty_whitewater")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output directory should not exist after failure, stat err = %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []historyRunView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "failed" || runs[0].ErrorKind != failures.KindFrameSource {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestEncodeMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "encode", filepath.Join(env.baseDir, "nope.mp4"))
	if !errors.Is(err, failures.ErrFrameSource) {
		t.Fatalf("expected frame source error, got %v", err)
	}
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in     string
		a, b   int
		wantOK bool
	}{
		{"4x3", 4, 3, true},
		{" 16X9 ", 16, 9, true},
		{"8,2", 8, 2, true},
		{"0x3", 0, 0, false},
		{"4x", 0, 0, false},
		{"4x3x2", 0, 0, false},
	}
	for _, tt := range tests {
		a, b, err := parseDimensions(tt.in)
		if (err == nil) != tt.wantOK {
			t.Fatalf("parseDimensions(%q) err = %v, wantOK %v", tt.in, err, tt.wantOK)
		}
		if tt.wantOK && (a != tt.a || b != tt.b) {
			t.Fatalf("parseDimensions(%q) = %d,%d, want %d,%d", tt.in, a, b, tt.a, tt.b)
		}
	}
}

func TestFileRowsGroupsTiles(t *testing.T) {
	rows := fileRows([]reportFile{
		{Name: "manifest.json", Size: 100},
		{Name: "tile_00000.jpg", Size: 1000},
		{Name: "tile_00001.jpg", Size: 2000},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}
	requireContains(t, rows[1][0], "tile_*.jpg (2 files)")
	requireContains(t, rows[1][1], "3.0 kB")
}

func TestLogsCommandFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("WHITEWATER_LOG_LEVEL", "info")
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)

	out, _, err := runCLI(t, env.configPath, "encode", input, "--no-progress", "--json")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var reports []encodeReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "logs", "--run", shortID(reports[0].RunID), "-n", "100")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "encode complete")
	requireContains(t, out, reports[0].RunID)
}

func TestCleanCommandRemovesOrphans(t *testing.T) {
	env := setupCLITestEnv(t)
	orphan := filepath.Join(env.cfg.Paths.OutputDir, ".clip_whitewater.staging-42")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "clean")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, orphan)
	if _, err := os.Stat(orphan); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("orphan should be removed, stat err = %v", err)
	}
}
