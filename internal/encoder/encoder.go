package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"whitewater/internal/codec"
	"whitewater/internal/diff"
	"whitewater/internal/failures"
	"whitewater/internal/frame"
	"whitewater/internal/grid"
	"whitewater/internal/logging"
	"whitewater/internal/manifest"
	"whitewater/internal/pack"
	"whitewater/internal/source"
)

// Result summarizes a successful encode.
type Result struct {
	Manifest *manifest.Manifest
	Frames   int
	Tiles    int
	Bytes    int64
	Elapsed  time.Duration
}

// Encoder turns a frame stream into diff tiles and a manifest.
type Encoder struct {
	opts   Options
	codec  codec.Codec
	packer *pack.Packer
	logger *slog.Logger
}

// New validates opts and returns an encoder.
func New(opts Options) (*Encoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c, err := codec.New(opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}
	packer, err := pack.New(opts.MaxTileWidth, opts.MaxTileHeight)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		opts:   opts,
		codec:  c,
		packer: packer,
		logger: logging.NewComponentLogger(opts.Logger, "encoder"),
	}, nil
}

// run holds the state of one Encode call. prev is only touched between
// frames.
type run struct {
	grid    grid.Grid
	engine  *diff.Engine
	builder *manifest.Builder
	prev    *frame.Frame

	estimated int
	tiles     int
	bytes     int64
	sampler   *logging.ProgressSampler
}

// Encode reads src until io.EOF and hands tiles and the finished manifest to
// sink. The first error stops the encode; the manifest is never written for a
// failed encode.
func (e *Encoder) Encode(ctx context.Context, src source.Source, sink Sink) (*Result, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, e.logger)

	r := &run{sampler: logging.NewProgressSampler(5)}
	if est, ok := src.(source.Estimator); ok {
		r.estimated = est.EstimatedFrames()
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, frameSourceError(err, r.frameCount())
		}
		if err := e.encodeFrame(ctx, logger, r, f, src.SampleRate(), sink); err != nil {
			return nil, err
		}
	}

	if r.builder == nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "encoder", "read", "source produced no frames", nil)
	}
	m, err := r.builder.Build()
	if err != nil {
		return nil, fmt.Errorf("encoder: build manifest: %w", err)
	}
	if err := sink.WriteManifest(ctx, m); err != nil {
		return nil, persistenceError("write manifest", err)
	}

	result := &Result{
		Manifest: m,
		Frames:   m.FrameCount,
		Tiles:    m.ImagesRequired,
		Bytes:    r.bytes,
		Elapsed:  time.Since(started),
	}
	logger.Info("encode complete",
		logging.Int("frames", result.Frames),
		logging.Int(logging.FieldTiles, result.Tiles),
		logging.Int64("bytes", result.Bytes),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (r *run) frameCount() int {
	if r.builder == nil {
		return 0
	}
	return r.builder.FrameCount()
}

func (e *Encoder) encodeFrame(ctx context.Context, logger *slog.Logger, r *run, f *frame.Frame, rate float64, sink Sink) error {
	if r.builder == nil {
		if err := e.start(logger, r, f, rate); err != nil {
			return err
		}
	}
	index := r.builder.FrameCount()

	diffs, err := r.engine.Compare(r.prev, f)
	if err != nil {
		return failures.Wrap(failures.ErrFrameSource, "encoder", "diff", fmt.Sprintf("frame %d", index), err)
	}
	dirty := diff.Dirty(diffs)

	tiles, err := e.packer.Pack(f, pack.Regions(r.grid, dirty))
	if err != nil {
		return err
	}

	imgs := make([]image.Image, len(tiles))
	for i, t := range tiles {
		imgs[i] = t.Image
	}
	encoded, err := e.codec.EncodeAll(ctx, imgs, e.opts.Workers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return persistenceError(fmt.Sprintf("encode tiles for frame %d", index), err)
	}

	// Placements follow the row-major dirty order across consecutive tiles, so
	// cells come out row-major too.
	var cells []manifest.Cell
	for i, t := range tiles {
		id := fmt.Sprintf("tile_%05d", r.tiles)
		name := id + e.codec.Format.Extension()
		if err := sink.WriteTile(ctx, name, encoded[i]); err != nil {
			return persistenceError("write "+name, err)
		}
		bounds := t.Image.Bounds()
		if err := r.builder.AddTile(manifest.Tile{ID: id, File: name, Width: bounds.Dx(), Height: bounds.Dy()}); err != nil {
			return fmt.Errorf("encoder: %w", err)
		}
		for _, p := range t.Placements {
			cells = append(cells, manifest.Cell{
				Row:    p.Coord.Row,
				Col:    p.Coord.Col,
				TileID: id,
				X:      p.Rect.Min.X,
				Y:      p.Rect.Min.Y,
				W:      p.Rect.Dx(),
				H:      p.Rect.Dy(),
			})
		}
		r.tiles++
		r.bytes += int64(len(encoded[i]))
	}
	if err := r.builder.AddFrame(index, cells); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	r.prev = f

	logger.Debug("frame encoded",
		logging.Int(logging.FieldFrame, index),
		logging.Int(logging.FieldDirtyCells, len(dirty)),
		logging.Int(logging.FieldTiles, len(tiles)),
	)
	percent := -1.0
	if r.estimated > 0 {
		percent = float64(index+1) * 100 / float64(r.estimated)
	}
	if r.sampler.ShouldLog(percent, "encode") {
		logger.Info("encode progress",
			logging.Int(logging.FieldFrame, index),
			logging.Int("estimated_frames", r.estimated),
			logging.Int(logging.FieldTiles, r.tiles),
		)
	}
	if e.opts.Progress != nil {
		e.opts.Progress(Progress{
			Frame:      index,
			Estimated:  r.estimated,
			DirtyCells: len(dirty),
			Tiles:      len(tiles),
			TotalTiles: r.tiles,
			Bytes:      r.bytes,
		})
	}
	return nil
}

// start freezes the grid from the first frame.
func (e *Encoder) start(logger *slog.Logger, r *run, f *frame.Frame, rate float64) error {
	g, err := grid.New(f.Width, f.Height, e.opts.Sizing)
	if err != nil {
		return err
	}
	engine, err := diff.New(g, e.opts.Threshold, e.opts.Workers)
	if err != nil {
		return err
	}
	r.grid = g
	r.engine = engine
	r.builder = manifest.NewBuilder(g, manifest.Meta{
		SampleRate: rate,
		Format:     string(e.codec.Format),
		Quality:    e.codec.Quality,
		Threshold:  e.opts.Threshold,
	})
	logger.Info("grid ready",
		logging.Int("width", f.Width),
		logging.Int("height", f.Height),
		logging.Int("rows", g.Rows),
		logging.Int("cols", g.Cols),
		logging.Int("cell_width", g.CellWidth),
		logging.Int("cell_height", g.CellHeight),
	)
	return nil
}

func frameSourceError(err error, index int) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, failures.ErrFrameSource) {
		return err
	}
	return failures.Wrap(failures.ErrFrameSource, "encoder", "read", fmt.Sprintf("frame %d", index), err)
}

func persistenceError(op string, err error) error {
	if errors.Is(err, failures.ErrPersistence) {
		return err
	}
	return failures.Wrap(failures.ErrPersistence, "encoder", op, "", err)
}
