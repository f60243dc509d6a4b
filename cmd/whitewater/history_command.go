package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"whitewater/internal/history"
)

type historyRunView struct {
	ID           string `json:"id"`
	Input        string `json:"input"`
	OutputDir    string `json:"outputDir"`
	Status       string `json:"status"`
	Frames       int    `json:"frames"`
	Tiles        int    `json:"tiles"`
	Bytes        int64  `json:"bytes"`
	Video        string `json:"video,omitempty"`
	Grid         string `json:"grid,omitempty"`
	Format       string `json:"format,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StartedAt    string `json:"startedAt"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	DurationMS   int64  `json:"durationMs"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded encode runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent encode runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]historyRunView, 0, len(runs))
					for _, r := range runs {
						views = append(views, runView(r))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No encode runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					{Header: "ID"},
					{Header: "Input"},
					{Header: "Status"},
					{Header: "Frames", Right: true},
					{Header: "Tiles", Right: true},
					{Header: "Size", Right: true},
					{Header: "Started"},
				}, historyRows(runs, time.Now())))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output runs as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one encode run by id or unique id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no encode run matches %q", args[0])
				}
				if err != nil {
					return err
				}
				view := runView(*run)
				if jsonOut {
					return writeJSON(cmd, view)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(runPairs(view)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run as JSON")
	return cmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cmd.Context(), cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func runView(r history.Run) historyRunView {
	v := historyRunView{
		ID:           r.ID,
		Input:        r.InputPath,
		OutputDir:    r.OutputDir,
		Status:       string(r.Status),
		Frames:       r.Frames,
		Tiles:        r.Tiles,
		Bytes:        r.Bytes,
		Format:       r.Format,
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.ErrorMessage,
		StartedAt:    formatTimestamp(r.StartedAt),
		FinishedAt:   formatTimestamp(r.FinishedAt),
		DurationMS:   r.Duration().Milliseconds(),
	}
	if r.VideoWidth > 0 {
		v.Video = fmt.Sprintf("%dx%d", r.VideoWidth, r.VideoHeight)
	}
	if r.GridRows > 0 {
		v.Grid = fmt.Sprintf("%dx%d", r.GridRows, r.GridCols)
	}
	return v
}

func historyRows(runs []history.Run, now time.Time) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		size := ""
		if r.Status == history.StatusSucceeded {
			size = humanize.Bytes(uint64(r.Bytes))
		}
		rows = append(rows, []string{
			shortID(r.ID),
			truncateMiddle(r.InputPath, 48),
			formatRunStatus(r),
			strconv.Itoa(r.Frames),
			strconv.Itoa(r.Tiles),
			size,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
		})
	}
	return rows
}

func runPairs(v historyRunView) [][2]string {
	pairs := [][2]string{
		{"ID", v.ID},
		{"Input", v.Input},
		{"Output", v.OutputDir},
		{"Status", v.Status},
		{"Started", v.StartedAt},
	}
	if v.FinishedAt != "" {
		pairs = append(pairs,
			[2]string{"Finished", v.FinishedAt},
			[2]string{"Duration", (time.Duration(v.DurationMS) * time.Millisecond).String()},
		)
	}
	if v.Status == string(history.StatusSucceeded) {
		pairs = append(pairs,
			[2]string{"Video", v.Video},
			[2]string{"Grid", v.Grid},
			[2]string{"Format", v.Format},
			[2]string{"Frames", humanize.Comma(int64(v.Frames))},
			[2]string{"Tiles", fmt.Sprintf("%s (%s)", humanize.Comma(int64(v.Tiles)), humanize.Bytes(uint64(v.Bytes)))},
		)
	}
	if v.ErrorMessage != "" {
		pairs = append(pairs,
			[2]string{"Error kind", v.ErrorKind},
			[2]string{"Error", v.ErrorMessage},
		)
	}
	return pairs
}

func formatRunStatus(r history.Run) string {
	if r.Status == history.StatusFailed && r.ErrorKind != "" {
		return fmt.Sprintf("%s (%s)", r.Status, r.ErrorKind)
	}
	return string(r.Status)
}
