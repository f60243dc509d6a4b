package main

import (
	"fmt"
	"strings"
	"testing"

	"whitewater/internal/deps"
	"whitewater/internal/preflight"
	"whitewater/internal/testsupport"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineWithoutMessage(t *testing.T) {
	got := renderStatusLine("Output", statusWarn, "", false)
	if !strings.HasSuffix(got, "[WARN]") {
		t.Fatalf("expected bare status, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Command: "ffmpeg", Available: true, Path: "/usr/bin/ffmpeg", Version: "ffmpeg version 7.1"},
		{Name: "FFprobe", Command: "ffprobe", Detail: `binary "ffprobe" not found`},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	requireContains(t, lines[0], "[ERROR] 1 missing")
	requireContains(t, lines[1], "[OK] ffmpeg version 7.1 (/usr/bin/ffmpeg)")
	requireContains(t, lines[2], `[ERROR] binary "ffprobe" not found`)
}

func TestDependencyLinesAllReady(t *testing.T) {
	lines := dependencyLines([]deps.Status{{Name: "FFmpeg", Available: true, Path: "/bin/ffmpeg"}}, false)
	requireContains(t, lines[0], "[OK] All dependencies available")
	requireContains(t, lines[1], "Ready (/bin/ffmpeg)")
}

func TestDirectoryLines(t *testing.T) {
	lines := directoryLines([]preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/tmp/state (writable)"},
		{Name: "Log directory", Detail: "/root/logs (error: not writable)"},
	}, false)
	requireContains(t, lines[0], "[OK] /tmp/state (writable)")
	requireContains(t, lines[1], "[ERROR] /root/logs")
}

func TestDepsCommandReportsStubbedBinaries(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, env.configPath, "deps")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "All dependencies available")
	requireContains(t, out, "== Directories ==")
}
