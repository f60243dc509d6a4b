package manifest

import (
	"fmt"

	"whitewater/internal/grid"
)

// Meta holds the encode settings recorded in the manifest.
type Meta struct {
	SampleRate float64
	Format     string
	Quality    int
	Threshold  float64
}

// Builder accumulates tiles and frame records as the encoder produces them.
type Builder struct {
	m       Manifest
	tileIDs map[string]struct{}
}

// NewBuilder starts a manifest for frames partitioned by g.
func NewBuilder(g grid.Grid, meta Meta) *Builder {
	return &Builder{
		m: Manifest{
			Version: Version,
			Grid: Grid{
				Rows:       g.Rows,
				Cols:       g.Cols,
				CellWidth:  g.CellWidth,
				CellHeight: g.CellHeight,
			},
			Video:      Video{Width: g.FrameWidth, Height: g.FrameHeight},
			SampleRate: meta.SampleRate,
			Format:     meta.Format,
			Quality:    meta.Quality,
			Threshold:  meta.Threshold,
			Tiles:      []Tile{},
			Frames:     []Frame{},
		},
		tileIDs: make(map[string]struct{}),
	}
}

// AddTile registers a tile image. IDs must be unique.
func (b *Builder) AddTile(t Tile) error {
	if t.ID == "" {
		return fmt.Errorf("manifest: tile id is required")
	}
	if _, dup := b.tileIDs[t.ID]; dup {
		return fmt.Errorf("manifest: duplicate tile id %q", t.ID)
	}
	b.tileIDs[t.ID] = struct{}{}
	b.m.Tiles = append(b.m.Tiles, t)
	return nil
}

// AddFrame appends the record for the next frame. index must equal the number
// of frames added so far.
func (b *Builder) AddFrame(index int, cells []Cell) error {
	if index != len(b.m.Frames) {
		return fmt.Errorf("manifest: frame %d added out of order, expected %d", index, len(b.m.Frames))
	}
	if cells == nil {
		cells = []Cell{}
	}
	b.m.Frames = append(b.m.Frames, Frame{Index: index, Cells: cells})
	return nil
}

// FrameCount returns the number of frames recorded so far.
func (b *Builder) FrameCount() int {
	return len(b.m.Frames)
}

// TileCount returns the number of tiles registered so far.
func (b *Builder) TileCount() int {
	return len(b.m.Tiles)
}

// Build finalizes the counts and validates the result.
func (b *Builder) Build() (*Manifest, error) {
	m := b.m
	m.FrameCount = len(m.Frames)
	m.ImagesRequired = len(m.Tiles)
	m.Tiles = append([]Tile(nil), m.Tiles...)
	m.Frames = append([]Frame(nil), m.Frames...)
	if m.Tiles == nil {
		m.Tiles = []Tile{}
	}
	if m.Frames == nil {
		m.Frames = []Frame{}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
