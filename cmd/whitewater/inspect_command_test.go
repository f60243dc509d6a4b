package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"whitewater/internal/manifest"
	"whitewater/internal/testsupport"
)

func encodeFixture(t *testing.T) (*cliTestEnv, string) {
	t.Helper()
	env := setupCLITestEnv(t, testsupport.WithHistory(false), testsupport.WithBlockSize(8))
	input := filepath.Join(env.baseDir, "clip")
	writeMovingSequence(t, input)
	if _, _, err := runCLI(t, env.configPath, "encode", input, "--no-progress"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return env, filepath.Join(env.cfg.Paths.OutputDir, "clip_whitewater")
}

func TestInspectOutputDirectory(t *testing.T) {
	_, dir := encodeFixture(t)

	out, _, err := runCLI(t, "", "inspect", dir, "--json", "--verify")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var stats manifestStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Frames != 3 || stats.Width != 32 || stats.Height != 24 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.CellsPainted != 13 {
		t.Fatalf("cells painted = %d, want 13", stats.CellsPainted)
	}
	// One of 24 cells changed across the two later frames.
	if stats.ChangedPercent < 4.1 || stats.ChangedPercent > 4.2 {
		t.Fatalf("changed percent = %.3f", stats.ChangedPercent)
	}
	if len(stats.Problems) != 0 || stats.TileBytes == 0 {
		t.Fatalf("unexpected verification result %+v", stats)
	}

	out, _, err = runCLI(t, "", "inspect", filepath.Join(dir, manifest.FileName), "--frames")
	if err != nil {
		t.Fatalf("inspect --frames: %v", err)
	}
	requireContains(t, out, "32x24")
	requireContains(t, out, "Frame")
}

func TestInspectVerifyReportsMissingTile(t *testing.T) {
	_, dir := encodeFixture(t)
	m, err := manifest.Read(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, m.Tiles[0].File)); err != nil {
		t.Fatalf("remove tile: %v", err)
	}

	out, _, err := runCLI(t, "", "inspect", dir, "--verify")
	if err == nil {
		t.Fatal("expected verification failure")
	}
	requireContains(t, out, m.Tiles[0].File+": missing")
}

func TestInspectMissingManifest(t *testing.T) {
	if _, _, err := runCLI(t, "", "inspect", t.TempDir()); err == nil {
		t.Fatal("expected error for directory without manifest")
	}
}
