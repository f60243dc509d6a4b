package grid

import (
	"image"

	"whitewater/internal/failures"
)

// Sizing selects how a grid is derived. Either the cell size or the row and
// column count must be set, never both.
type Sizing struct {
	CellWidth  int
	CellHeight int
	Rows       int
	Cols       int
}

// BySize returns a Sizing for square cells of size pixels.
func BySize(size int) Sizing {
	return Sizing{CellWidth: size, CellHeight: size}
}

// ByShape returns a Sizing for a fixed row and column count.
func ByShape(rows, cols int) Sizing {
	return Sizing{Rows: rows, Cols: cols}
}

// HasCellSize reports whether the cell size is authoritative.
func (s Sizing) HasCellSize() bool {
	return s.CellWidth != 0 || s.CellHeight != 0
}

// HasShape reports whether the row/column count is authoritative.
func (s Sizing) HasShape() bool {
	return s.Rows != 0 || s.Cols != 0
}

// Validate checks the sizing parameters independent of any frame.
func (s Sizing) Validate() error {
	switch {
	case s.HasCellSize() && s.HasShape():
		return failures.Configuration("grid", "cell size %dx%d and grid shape %dx%d are mutually exclusive", s.CellWidth, s.CellHeight, s.Rows, s.Cols)
	case s.HasCellSize():
		if s.CellWidth <= 0 || s.CellHeight <= 0 {
			return failures.Configuration("grid", "cell size must be positive, got %dx%d", s.CellWidth, s.CellHeight)
		}
	case s.HasShape():
		if s.Rows <= 0 || s.Cols <= 0 {
			return failures.Configuration("grid", "grid shape must be positive, got %d rows x %d cols", s.Rows, s.Cols)
		}
	default:
		return failures.Configuration("grid", "either a cell size or a grid shape is required")
	}
	return nil
}

// Grid partitions a frame into Rows x Cols cells. Every cell has the nominal
// CellWidth x CellHeight size except those in the last column and last row,
// which take whatever pixels remain.
type Grid struct {
	Rows        int
	Cols        int
	CellWidth   int
	CellHeight  int
	FrameWidth  int
	FrameHeight int
}

// Coord addresses a cell.
type Coord struct {
	Row int
	Col int
}

// New derives the grid for a width x height frame.
//
// With a cell size, the row and column counts are the ceiling of the frame
// dimension over the cell dimension, so trailing cells may be narrower. With a
// grid shape, the nominal cell size is the floor of the frame dimension over the
// count, so trailing cells may be wider.
func New(width, height int, sizing Sizing) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, failures.Configuration("grid", "frame dimensions must be positive, got %dx%d", width, height)
	}
	if err := sizing.Validate(); err != nil {
		return Grid{}, err
	}

	g := Grid{FrameWidth: width, FrameHeight: height}
	if sizing.HasCellSize() {
		g.CellWidth = min(sizing.CellWidth, width)
		g.CellHeight = min(sizing.CellHeight, height)
		g.Cols = ceilDiv(width, g.CellWidth)
		g.Rows = ceilDiv(height, g.CellHeight)
	} else {
		g.Rows = sizing.Rows
		g.Cols = sizing.Cols
		g.CellWidth = width / sizing.Cols
		g.CellHeight = height / sizing.Rows
	}

	if g.Rows <= 0 || g.Cols <= 0 || g.CellWidth <= 0 || g.CellHeight <= 0 {
		return Grid{}, failures.Configuration("grid", "%dx%d frame cannot be split into %d rows x %d cols", width, height, g.Rows, g.Cols)
	}
	return g, nil
}

// Len returns the number of cells.
func (g Grid) Len() int {
	return g.Rows * g.Cols
}

// Contains reports whether c addresses a cell of g.
func (g Grid) Contains(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// Cell returns the pixel rectangle owned by (row, col).
func (g Grid) Cell(row, col int) image.Rectangle {
	x0 := col * g.CellWidth
	y0 := row * g.CellHeight
	x1 := x0 + g.CellWidth
	y1 := y0 + g.CellHeight
	if col == g.Cols-1 {
		x1 = g.FrameWidth
	}
	if row == g.Rows-1 {
		y1 = g.FrameHeight
	}
	return image.Rect(x0, y0, x1, y1)
}

// CellAt returns the rectangle for c.
func (g Grid) CellAt(c Coord) image.Rectangle {
	return g.Cell(c.Row, c.Col)
}

// Coords lists every cell in row-major order.
func (g Grid) Coords() []Coord {
	out := make([]Coord, 0, g.Len())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

// Position returns the row-major index of c.
func (g Grid) Position(c Coord) int {
	return c.Row*g.Cols + c.Col
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
