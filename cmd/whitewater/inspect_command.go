package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"whitewater/internal/manifest"
)

type manifestStats struct {
	Path           string   `json:"path"`
	Version        int      `json:"version"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	GridRows       int      `json:"gridRows"`
	GridCols       int      `json:"gridCols"`
	CellWidth      int      `json:"cellWidth"`
	CellHeight     int      `json:"cellHeight"`
	Frames         int      `json:"frames"`
	SampleRate     float64  `json:"sampleRate"`
	DurationMS     int64    `json:"durationMs"`
	Format         string   `json:"format"`
	Quality        int      `json:"quality"`
	Threshold      float64  `json:"threshold"`
	Tiles          int      `json:"tiles"`
	TileBytes      int64    `json:"tileBytes"`
	CellsPainted   int      `json:"cellsPainted"`
	ChangedPercent float64  `json:"changedPercent"`
	Problems       []string `json:"problems,omitempty"`
}

func newInspectCommand() *cobra.Command {
	var jsonOut bool
	var showFrames bool
	var verify bool

	cmd := &cobra.Command{
		Use:         "inspect <manifest|output-dir>",
		Short:       "Summarize an encoded manifest",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveManifestPath(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Read(path)
			if err != nil {
				return err
			}
			stats := summarizeManifest(path, m)
			if verify {
				stats.Problems = verifyTiles(filepath.Dir(path), m, &stats)
			}

			if jsonOut {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues(statsPairs(stats, verify)))
			if showFrames {
				fmt.Fprintln(out, renderTable(
					[]tableColumn{{Header: "Frame", Right: true}, {Header: "Cells", Right: true}, {Header: "Tiles", Right: true}},
					frameRows(m),
				))
			}
			for _, p := range stats.Problems {
				fmt.Fprintln(out, renderStatusLine("Tile check", statusError, p, shouldColorize(out)))
			}
			if len(stats.Problems) > 0 {
				return fmt.Errorf("%d tile problem(s) found", len(stats.Problems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the summary as JSON")
	cmd.Flags().BoolVar(&showFrames, "frames", false, "List painted cells per frame")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check that every tile file exists with the recorded dimensions")
	return cmd
}

// resolveManifestPath accepts a manifest file or an output directory holding
// manifest.json or manifest.json.zst.
func resolveManifestPath(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("inspect: %w", err)
	}
	if !info.IsDir() {
		return arg, nil
	}
	for _, name := range []string{manifest.FileName, manifest.CompressedFileName} {
		candidate := filepath.Join(arg, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("inspect: no %s in %s", manifest.FileName, arg)
}

func summarizeManifest(path string, m *manifest.Manifest) manifestStats {
	stats := manifestStats{
		Path:       path,
		Version:    m.Version,
		Width:      m.Video.Width,
		Height:     m.Video.Height,
		GridRows:   m.Grid.Rows,
		GridCols:   m.Grid.Cols,
		CellWidth:  m.Grid.CellWidth,
		CellHeight: m.Grid.CellHeight,
		Frames:     m.FrameCount,
		SampleRate: m.SampleRate,
		Format:     m.Format,
		Quality:    m.Quality,
		Threshold:  m.Threshold,
		Tiles:      len(m.Tiles),
	}
	if m.SampleRate > 0 {
		stats.DurationMS = int64(float64(m.FrameCount) / m.SampleRate * 1000)
	}
	for _, f := range m.Frames {
		stats.CellsPainted += len(f.Cells)
	}
	// Frame 0 always paints every cell, so the change ratio covers the rest.
	if cells := m.Grid.Rows * m.Grid.Cols; m.FrameCount > 1 && cells > 0 {
		later := stats.CellsPainted - len(m.Frames[0].Cells)
		stats.ChangedPercent = float64(later) * 100 / float64((m.FrameCount-1)*cells)
	}
	return stats
}

func verifyTiles(dir string, m *manifest.Manifest, stats *manifestStats) []string {
	var problems []string
	for _, t := range m.Tiles {
		path := filepath.Join(dir, t.File)
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				problems = append(problems, fmt.Sprintf("%s: missing", t.File))
			} else {
				problems = append(problems, fmt.Sprintf("%s: %v", t.File, err))
			}
			continue
		}
		cfg, _, err := image.DecodeConfig(f)
		if info, statErr := f.Stat(); statErr == nil {
			stats.TileBytes += info.Size()
		}
		f.Close()
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", t.File, err))
			continue
		}
		if cfg.Width != t.Width || cfg.Height != t.Height {
			problems = append(problems, fmt.Sprintf("%s: %dx%d, manifest says %dx%d", t.File, cfg.Width, cfg.Height, t.Width, t.Height))
		}
	}
	return problems
}

func statsPairs(s manifestStats, verified bool) [][2]string {
	pairs := [][2]string{
		{"Manifest", s.Path},
		{"Version", strconv.Itoa(s.Version)},
		{"Video", fmt.Sprintf("%dx%d", s.Width, s.Height)},
		{"Grid", fmt.Sprintf("%dx%d cells of %dx%d", s.GridRows, s.GridCols, s.CellWidth, s.CellHeight)},
		{"Frames", humanize.Comma(int64(s.Frames))},
		{"Sample rate", fmt.Sprintf("%s fps", humanize.FtoaWithDigits(s.SampleRate, 3))},
		{"Duration", (time.Duration(s.DurationMS) * time.Millisecond).String()},
		{"Format", fmt.Sprintf("%s (quality %d)", s.Format, s.Quality)},
		{"Threshold", humanize.FtoaWithDigits(s.Threshold, 3)},
		{"Tiles", humanize.Comma(int64(s.Tiles))},
		{"Cells painted", humanize.Comma(int64(s.CellsPainted))},
		{"Changed cells", fmt.Sprintf("%.1f%%", s.ChangedPercent)},
	}
	if verified {
		pairs = append(pairs, [2]string{"Tile bytes", humanize.Bytes(uint64(s.TileBytes))})
	}
	return pairs
}

func frameRows(m *manifest.Manifest) [][]string {
	rows := make([][]string, 0, len(m.Frames))
	for _, f := range m.Frames {
		tiles := make(map[string]struct{})
		for _, c := range f.Cells {
			tiles[c.TileID] = struct{}{}
		}
		rows = append(rows, []string{
			strconv.Itoa(f.Index),
			strconv.Itoa(len(f.Cells)),
			strconv.Itoa(len(tiles)),
		})
	}
	return rows
}
