package encoder

import (
	"log/slog"

	"whitewater/internal/codec"
	"whitewater/internal/config"
	"whitewater/internal/diff"
	"whitewater/internal/failures"
	"whitewater/internal/grid"
)

// Options configures an Encoder.
type Options struct {
	Sizing        grid.Sizing
	Threshold     float64
	Quality       int
	Format        codec.Format
	MaxTileWidth  int
	MaxTileHeight int
	// Workers bounds diff and tile encoding goroutines. Zero uses GOMAXPROCS.
	Workers int
	// Progress, when set, is called after every frame.
	Progress func(Progress)
	Logger   *slog.Logger
}

// Progress reports the state of an encode after a frame completes.
type Progress struct {
	Frame      int
	Estimated  int
	DirtyCells int
	Tiles      int
	TotalTiles int
	Bytes      int64
}

// OptionsFromConfig maps the [encoder] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	e := cfg.Encoder
	sizing := grid.BySize(e.BlockSize)
	if e.GridRows != 0 || e.GridCols != 0 {
		sizing = grid.ByShape(e.GridRows, e.GridCols)
	}
	return Options{
		Sizing:        sizing,
		Threshold:     e.Threshold,
		Quality:       e.Quality,
		Format:        codec.Format(e.Format),
		MaxTileWidth:  e.MaxTileWidth,
		MaxTileHeight: e.MaxTileHeight,
		Workers:       e.Workers,
	}
}

// Validate reports contradictory or out-of-range settings before any frame is
// read. A cell size larger than the maximum tile is rejected here; with a grid
// shape the cell size depends on the frame, so that case surfaces as a
// packing error instead.
func (o Options) Validate() error {
	if err := o.Sizing.Validate(); err != nil {
		return err
	}
	if err := diff.ValidateThreshold(o.Threshold); err != nil {
		return err
	}
	if _, err := codec.New(o.Format, o.Quality); err != nil {
		return err
	}
	if o.MaxTileWidth <= 0 || o.MaxTileHeight <= 0 {
		return failures.Configuration("encoder", "max tile dimension must be positive, got %dx%d", o.MaxTileWidth, o.MaxTileHeight)
	}
	if o.Sizing.HasCellSize() && (o.Sizing.CellWidth > o.MaxTileWidth || o.Sizing.CellHeight > o.MaxTileHeight) {
		return failures.Configuration("encoder", "cell size %dx%d exceeds max tile %dx%d",
			o.Sizing.CellWidth, o.Sizing.CellHeight, o.MaxTileWidth, o.MaxTileHeight)
	}
	if o.Workers < 0 {
		return failures.Configuration("encoder", "workers must be zero or positive, got %d", o.Workers)
	}
	return nil
}
