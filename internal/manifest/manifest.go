package manifest

import (
	"fmt"
	"image"

	"whitewater/internal/grid"
)

// Version is the manifest schema version written by this encoder.
const Version = 1

const (
	FileName           = "manifest.json"
	CompressedFileName = "manifest.json.zst"
)

// Manifest maps every sampled frame to the tile image regions a player paints
// onto its canvas. Frame 0 lists every cell; later frames list only cells that
// changed since the frame before.
type Manifest struct {
	Version        int     `json:"version"`
	Grid           Grid    `json:"grid"`
	Video          Video   `json:"video"`
	FrameCount     int     `json:"frameCount"`
	SampleRate     float64 `json:"sampleRate"`
	Format         string  `json:"format"`
	Quality        int     `json:"quality"`
	Threshold      float64 `json:"threshold"`
	ImagesRequired int     `json:"imagesRequired"`
	Tiles          []Tile  `json:"tiles"`
	Frames         []Frame `json:"frames"`
}

// Grid describes the cell layout. Cells in the last row and column may differ
// from CellWidth x CellHeight.
type Grid struct {
	Rows       int `json:"rows"`
	Cols       int `json:"cols"`
	CellWidth  int `json:"cellWidth"`
	CellHeight int `json:"cellHeight"`
}

// Video records the source frame dimensions.
type Video struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Tile names one packed image file.
type Tile struct {
	ID     string `json:"id"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Frame lists the cells painted for one frame.
type Frame struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

// Cell maps a destination cell to a source rectangle inside a tile image.
type Cell struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	TileID string `json:"tileId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
}

// Rect returns the source rectangle inside the tile image.
func (c Cell) Rect() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.W, c.Y+c.H)
}

// Coord returns the destination cell coordinate.
func (c Cell) Coord() grid.Coord {
	return grid.Coord{Row: c.Row, Col: c.Col}
}

// GridLayout rebuilds the frame grid described by the manifest.
func (m *Manifest) GridLayout() grid.Grid {
	return grid.Grid{
		Rows:        m.Grid.Rows,
		Cols:        m.Grid.Cols,
		CellWidth:   m.Grid.CellWidth,
		CellHeight:  m.Grid.CellHeight,
		FrameWidth:  m.Video.Width,
		FrameHeight: m.Video.Height,
	}
}

// TileByID returns the tile with id.
func (m *Manifest) TileByID(id string) (Tile, bool) {
	for _, t := range m.Tiles {
		if t.ID == id {
			return t, true
		}
	}
	return Tile{}, false
}

// Validate checks the invariants a player relies on: contiguous frame indices
// starting at 0, a frame count that matches, a fully covered first frame, and
// cell references that resolve to an existing tile with a rectangle of the
// right size inside that tile.
func (m *Manifest) Validate() error {
	if m.Grid.Rows <= 0 || m.Grid.Cols <= 0 || m.Grid.CellWidth <= 0 || m.Grid.CellHeight <= 0 {
		return fmt.Errorf("manifest: invalid grid %+v", m.Grid)
	}
	if m.Video.Width <= 0 || m.Video.Height <= 0 {
		return fmt.Errorf("manifest: invalid video size %dx%d", m.Video.Width, m.Video.Height)
	}
	if m.FrameCount != len(m.Frames) {
		return fmt.Errorf("manifest: frameCount %d but %d frames recorded", m.FrameCount, len(m.Frames))
	}
	if m.ImagesRequired != len(m.Tiles) {
		return fmt.Errorf("manifest: imagesRequired %d but %d tiles recorded", m.ImagesRequired, len(m.Tiles))
	}

	tiles := make(map[string]Tile, len(m.Tiles))
	for _, t := range m.Tiles {
		if t.ID == "" || t.File == "" {
			return fmt.Errorf("manifest: tile %+v is missing an id or file", t)
		}
		if _, dup := tiles[t.ID]; dup {
			return fmt.Errorf("manifest: duplicate tile id %q", t.ID)
		}
		tiles[t.ID] = t
	}

	g := m.GridLayout()
	for i, f := range m.Frames {
		if f.Index != i {
			return fmt.Errorf("manifest: frame at position %d has index %d", i, f.Index)
		}
		seen := make(map[grid.Coord]struct{}, len(f.Cells))
		for _, c := range f.Cells {
			if !g.Contains(c.Coord()) {
				return fmt.Errorf("manifest: frame %d references cell (%d,%d) outside %dx%d grid", i, c.Row, c.Col, g.Rows, g.Cols)
			}
			if _, dup := seen[c.Coord()]; dup {
				return fmt.Errorf("manifest: frame %d lists cell (%d,%d) twice", i, c.Row, c.Col)
			}
			seen[c.Coord()] = struct{}{}

			tile, ok := tiles[c.TileID]
			if !ok {
				return fmt.Errorf("manifest: frame %d cell (%d,%d) references unknown tile %q", i, c.Row, c.Col, c.TileID)
			}
			want := g.CellAt(c.Coord())
			if c.W != want.Dx() || c.H != want.Dy() {
				return fmt.Errorf("manifest: frame %d cell (%d,%d) is %dx%d, want %dx%d", i, c.Row, c.Col, c.W, c.H, want.Dx(), want.Dy())
			}
			if !c.Rect().In(image.Rect(0, 0, tile.Width, tile.Height)) {
				return fmt.Errorf("manifest: frame %d cell (%d,%d) rectangle %v outside tile %q (%dx%d)", i, c.Row, c.Col, c.Rect(), tile.ID, tile.Width, tile.Height)
			}
		}
		if i == 0 && len(seen) != g.Len() {
			return fmt.Errorf("manifest: first frame lists %d of %d cells", len(seen), g.Len())
		}
	}
	return nil
}
