package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"whitewater/internal/config"
	"whitewater/internal/encoder"
	"whitewater/internal/failures"
	"whitewater/internal/history"
	"whitewater/internal/logging"
	"whitewater/internal/output"
	"whitewater/internal/preflight"
	"whitewater/internal/source"
)

type encodeFlags struct {
	output     string
	blockSize  int
	grid       string
	threshold  float64
	quality    int
	format     string
	maxTile    string
	workers    int
	sampleRate float64
	compress   bool
	noHistory  bool
	noProgress bool
	jsonOut    bool
}

type encodeReport struct {
	Input     string       `json:"input"`
	OutputDir string       `json:"outputDir"`
	RunID     string       `json:"runId,omitempty"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	GridRows  int          `json:"gridRows"`
	GridCols  int          `json:"gridCols"`
	Frames    int          `json:"frames"`
	Tiles     int          `json:"tiles"`
	Bytes     int64        `json:"bytes"`
	ElapsedMS int64        `json:"elapsedMs"`
	Files     []reportFile `json:"files"`
}

type reportFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags

	cmd := &cobra.Command{
		Use:   "encode <input>...",
		Short: "Encode videos or image directories into tiles and a manifest",
		Long: "Encode each input into its own output directory. Inputs are video files\n" +
			"(decoded with ffmpeg) or directories of PNG/JPEG/GIF frames.\n\n" +
			"The output directory defaults to the input path without its extension.\n" +
			"With several inputs, --output names the parent directory instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyEncodeFlags(cmd, base, flags)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var store *history.Store
			if cfg.History.Enabled && !flags.noHistory {
				store, err = history.Open(runCtx, cfg.HistoryPath())
				if err != nil {
					return err
				}
				defer store.Close()
			}

			enc := &encodeRunner{
				cfg:      cfg,
				logger:   logger,
				store:    store,
				progress: cmd.ErrOrStderr(),
				bars:     !flags.noProgress && !flags.jsonOut && shouldColorize(cmd.ErrOrStderr()),
			}

			reports := make([]encodeReport, 0, len(args))
			for _, input := range args {
				outputDir, err := resolveOutputDir(cfg, input, flags.output, len(args) > 1)
				if err != nil {
					return err
				}
				report, err := enc.encode(runCtx, input, outputDir)
				if err != nil {
					return fmt.Errorf("encode %s: %w", input, err)
				}
				reports = append(reports, *report)
				if !flags.jsonOut {
					printEncodeReport(cmd.OutOrStdout(), report)
				}
			}
			if flags.jsonOut {
				return writeJSON(cmd, reports)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Output directory (parent directory when encoding several inputs)")
	f.IntVar(&flags.blockSize, "block-size", 0, "Square cell size in pixels")
	f.StringVar(&flags.grid, "grid", "", "Fixed grid shape as ROWSxCOLS (replaces --block-size)")
	f.Float64Var(&flags.threshold, "threshold", 0, "RMS change threshold (0-255); cells strictly above are re-encoded")
	f.IntVar(&flags.quality, "quality", 0, "Tile image quality (0-100)")
	f.StringVar(&flags.format, "format", "", "Tile image format: jpeg, png, or gif")
	f.StringVar(&flags.maxTile, "max-tile", "", "Maximum tile image size as WIDTHxHEIGHT")
	f.IntVar(&flags.workers, "workers", 0, "Parallel workers for diffing and tile encoding (0 uses all CPUs)")
	f.Float64Var(&flags.sampleRate, "sample-rate", 0, "Frames per second sampled from the input")
	f.BoolVar(&flags.compress, "compress", false, "Also write manifest.json.zst")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record this encode in the history database")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Disable the interactive progress bar")
	f.BoolVar(&flags.jsonOut, "json", false, "Output the encode summary as JSON")
	return cmd
}

// applyEncodeFlags returns a copy of base with every explicitly set flag
// applied, normalized and validated.
func applyEncodeFlags(cmd *cobra.Command, base *config.Config, flags encodeFlags) (*config.Config, error) {
	cfg := *base
	changed := cmd.Flags().Changed

	if changed("block-size") && changed("grid") {
		return nil, failures.Configuration("cli", "--block-size and --grid are mutually exclusive")
	}
	if changed("block-size") {
		cfg.Encoder.BlockSize = flags.blockSize
		cfg.Encoder.GridRows = 0
		cfg.Encoder.GridCols = 0
	}
	if changed("grid") {
		rows, cols, err := parseDimensions(flags.grid)
		if err != nil {
			return nil, failures.Configuration("cli", "--grid: %v", err)
		}
		cfg.Encoder.BlockSize = 0
		cfg.Encoder.GridRows = rows
		cfg.Encoder.GridCols = cols
	}
	if changed("max-tile") {
		w, h, err := parseDimensions(flags.maxTile)
		if err != nil {
			return nil, failures.Configuration("cli", "--max-tile: %v", err)
		}
		cfg.Encoder.MaxTileWidth = w
		cfg.Encoder.MaxTileHeight = h
	}
	if changed("threshold") {
		cfg.Encoder.Threshold = flags.threshold
	}
	if changed("quality") {
		cfg.Encoder.Quality = flags.quality
	}
	if changed("format") {
		cfg.Encoder.Format = flags.format
	}
	if changed("workers") {
		cfg.Encoder.Workers = flags.workers
	}
	if changed("sample-rate") {
		cfg.Source.SampleRate = flags.sampleRate
	}
	if changed("compress") {
		cfg.Manifest.Compress = flags.compress
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDimensions reads "AxB" (also "A,B" or "AXB") into two positive ints.
func parseDimensions(value string) (int, int, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	sep := "x"
	if strings.Contains(value, ",") {
		sep = ","
	}
	parts := strings.Split(value, sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected AxB, got %q", value)
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return 0, 0, fmt.Errorf("expected two positive integers, got %q", value)
	}
	return a, b, nil
}

func resolveOutputDir(cfg *config.Config, input, outputFlag string, multiple bool) (string, error) {
	abs, err := config.ExpandPath(input)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", failures.Wrap(failures.ErrFrameSource, "cli", "input", abs, err)
	}
	outputFlag = strings.TrimSpace(outputFlag)
	if outputFlag != "" && !multiple {
		return config.ExpandPath(outputFlag)
	}
	root := cfg.Paths.OutputDir
	if outputFlag != "" {
		if root, err = config.ExpandPath(outputFlag); err != nil {
			return "", err
		}
	}
	return output.DefaultDir(abs, root, info.IsDir()), nil
}

type encodeRunner struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	progress io.Writer
	bars     bool
}

func (r *encodeRunner) encode(ctx context.Context, input, outputDir string) (*encodeReport, error) {
	input, err := config.ExpandPath(input)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "cli", "input", input, err)
	}
	video := !info.IsDir()

	if err := preflight.CheckEncode(ctx, r.cfg, input, outputDir, video); err != nil {
		return nil, err
	}

	ctx = logging.WithInput(ctx, input)
	report := &encodeReport{Input: input, OutputDir: outputDir}

	var run *history.Run
	if r.store != nil {
		if run, err = r.store.Begin(ctx, input, outputDir); err != nil {
			return nil, err
		}
		ctx = logging.WithRunID(ctx, run.ID)
		report.RunID = run.ID
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "cli"))

	res, files, err := r.run(ctx, logger, input, outputDir, video)
	if err != nil {
		if run != nil {
			if ferr := r.store.Fail(context.WithoutCancel(ctx), run.ID, err); ferr != nil {
				logging.WarnWithContext(logger, "record failed run", "history_write_failed",
					logging.Error(ferr),
					logging.String(logging.FieldImpact, "run stays marked running in history"),
				)
			}
		}
		if !errors.Is(err, context.Canceled) {
			logging.ErrorWithContext(logger, "encode failed", "encode_failed",
				logging.ErrorKind(err),
				logging.Error(err),
			)
		}
		return nil, err
	}

	m := res.Manifest
	report.Width, report.Height = m.Video.Width, m.Video.Height
	report.GridRows, report.GridCols = m.Grid.Rows, m.Grid.Cols
	report.Frames, report.Tiles, report.Bytes = res.Frames, res.Tiles, res.Bytes
	report.ElapsedMS = res.Elapsed.Milliseconds()
	for _, f := range files {
		report.Files = append(report.Files, reportFile{Name: f.Name, Size: f.Size})
	}

	if run != nil {
		err := r.store.Finish(ctx, run.ID, history.Summary{
			Frames:      res.Frames,
			Tiles:       res.Tiles,
			Bytes:       res.Bytes,
			VideoWidth:  m.Video.Width,
			VideoHeight: m.Video.Height,
			GridRows:    m.Grid.Rows,
			GridCols:    m.Grid.Cols,
			Format:      m.Format,
		})
		if err != nil {
			logging.WarnWithContext(logger, "record finished run", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "output is complete but history is stale"),
			)
		}
	}
	return report, nil
}

func (r *encodeRunner) run(ctx context.Context, logger *slog.Logger, input, outputDir string, video bool) (*encoder.Result, []output.File, error) {
	src, err := r.openSource(ctx, logger, input, video)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	stage, err := output.Open(outputDir, output.Options{
		Compress: r.cfg.Manifest.Compress,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := encoder.OptionsFromConfig(r.cfg)
	opts.Logger = r.logger
	var bar *progressReporter
	if r.bars {
		bar = newProgressReporter(r.progress, input)
		opts.Progress = bar.update
	}

	enc, err := encoder.New(opts)
	if err != nil {
		_ = stage.Abort()
		return nil, nil, err
	}
	res, err := enc.Encode(ctx, src, stage)
	bar.finish()
	if err != nil {
		if aerr := stage.Abort(); aerr != nil {
			logger.Warn("discard staged output", logging.Error(aerr))
		}
		return nil, nil, err
	}
	files, err := stage.Commit()
	if err != nil {
		return nil, nil, err
	}
	return res, files, nil
}

func (r *encodeRunner) openSource(ctx context.Context, logger *slog.Logger, input string, video bool) (source.Source, error) {
	if !video {
		rate := r.cfg.Source.SampleRate
		if rate <= 0 {
			rate = source.DefaultSequenceRate
		}
		return source.OpenImageSequence(input, rate)
	}
	return source.OpenFFmpeg(ctx, input, source.FFmpegOptions{
		FFmpegBinary:  r.cfg.FFmpegBinary(),
		FFprobeBinary: r.cfg.FFprobeBinary(),
		SampleRate:    r.cfg.Source.SampleRate,
		Logger:        logger,
	})
}

func printEncodeReport(w io.Writer, report *encodeReport) {
	fmt.Fprintf(w, "Encoded %s\n", report.Input)
	fmt.Fprintf(w, "  Output:  %s\n", report.OutputDir)
	if report.RunID != "" {
		fmt.Fprintf(w, "  Run:     %s\n", shortID(report.RunID))
	}
	fmt.Fprintf(w, "  Video:   %dx%d, grid %dx%d\n", report.Width, report.Height, report.GridRows, report.GridCols)
	fmt.Fprintf(w, "  Frames:  %s\n", humanize.Comma(int64(report.Frames)))
	fmt.Fprintf(w, "  Tiles:   %s (%s)\n", humanize.Comma(int64(report.Tiles)), humanize.Bytes(uint64(report.Bytes)))
	fmt.Fprintf(w, "  Elapsed: %s\n", (time.Duration(report.ElapsedMS) * time.Millisecond).String())

	if rows := fileRows(report.Files); len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]tableColumn{{Header: "File"}, {Header: "Size", Right: true}}, rows))
	}
}

// fileRows lists manifests individually and folds tile images into a single
// row per extension.
func fileRows(files []reportFile) [][]string {
	type group struct {
		count int
		size  int64
	}
	tiles := map[string]*group{}
	var exts []string
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		if !strings.HasPrefix(f.Name, "tile_") {
			rows = append(rows, []string{f.Name, humanize.Bytes(uint64(f.Size))})
			continue
		}
		ext := filepath.Ext(f.Name)
		g, ok := tiles[ext]
		if !ok {
			g = &group{}
			tiles[ext] = g
			exts = append(exts, ext)
		}
		g.count++
		g.size += f.Size
	}
	for _, ext := range exts {
		g := tiles[ext]
		rows = append(rows, []string{
			fmt.Sprintf("tile_*%s (%s files)", ext, humanize.Comma(int64(g.count))),
			humanize.Bytes(uint64(g.size)),
		})
	}
	return rows
}
