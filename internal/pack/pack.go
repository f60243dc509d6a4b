package pack

import (
	"fmt"
	"image"

	"whitewater/internal/failures"
	"whitewater/internal/frame"
	"whitewater/internal/grid"
)

// Region is a dirty cell: its grid coordinate and the pixel rectangle it owns
// in the source frame.
type Region struct {
	Coord  grid.Coord
	Source image.Rectangle
}

// Placement maps a region to the rectangle it occupies inside a tile image.
type Placement struct {
	Coord  grid.Coord
	Source image.Rectangle
	Rect   image.Rectangle
}

// Layout is the arrangement of one tile image before any pixels are copied.
type Layout struct {
	Width      int
	Height     int
	Placements []Placement
}

// Tile is a composed raster plus the placements it holds.
type Tile struct {
	Image      *image.RGBA
	Placements []Placement
}

// Packer arranges regions into tile images no larger than MaxWidth x MaxHeight.
type Packer struct {
	MaxWidth  int
	MaxHeight int
}

// New returns a packer for the given maximum tile dimensions.
func New(maxWidth, maxHeight int) (*Packer, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, failures.Configuration("pack", "max tile dimension must be positive, got %dx%d", maxWidth, maxHeight)
	}
	return &Packer{MaxWidth: maxWidth, MaxHeight: maxHeight}, nil
}

// Layout places regions left to right on shelves, wrapping to a new shelf when
// the next region would overflow MaxWidth and starting a new tile when the next
// shelf would overflow MaxHeight. Regions keep their input order, so the result
// is deterministic. Every region appears in exactly one placement.
func (p *Packer) Layout(regions []Region) ([]Layout, error) {
	for _, r := range regions {
		if r.Source.Empty() {
			return nil, failures.Wrap(failures.ErrPacking, "pack", "layout", fmt.Sprintf("cell (%d,%d) has an empty rectangle", r.Coord.Row, r.Coord.Col), nil)
		}
		if r.Source.Dx() > p.MaxWidth || r.Source.Dy() > p.MaxHeight {
			return nil, failures.Wrap(failures.ErrPacking, "pack", "layout",
				fmt.Sprintf("cell (%d,%d) is %dx%d, larger than max tile %dx%d",
					r.Coord.Row, r.Coord.Col, r.Source.Dx(), r.Source.Dy(), p.MaxWidth, p.MaxHeight), nil)
		}
	}
	if len(regions) == 0 {
		return nil, nil
	}

	var (
		layouts []Layout
		current Layout
		x, y    int
		shelf   int
	)
	flush := func() {
		if len(current.Placements) > 0 {
			layouts = append(layouts, current)
		}
		current = Layout{}
		x, y, shelf = 0, 0, 0
	}

	for _, r := range regions {
		w, h := r.Source.Dx(), r.Source.Dy()
		if x+w > p.MaxWidth {
			y += shelf
			x, shelf = 0, 0
		}
		if y+h > p.MaxHeight {
			flush()
		}
		rect := image.Rect(x, y, x+w, y+h)
		current.Placements = append(current.Placements, Placement{Coord: r.Coord, Source: r.Source, Rect: rect})
		current.Width = max(current.Width, rect.Max.X)
		current.Height = max(current.Height, rect.Max.Y)
		x += w
		shelf = max(shelf, h)
	}
	flush()
	return layouts, nil
}

// Pack lays out regions and copies their pixels from f into tile rasters.
func (p *Packer) Pack(f *frame.Frame, regions []Region) ([]Tile, error) {
	layouts, err := p.Layout(regions)
	if err != nil {
		return nil, err
	}
	tiles := make([]Tile, 0, len(layouts))
	for _, l := range layouts {
		img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
		for _, pl := range l.Placements {
			if !pl.Source.In(f.Bounds()) {
				return nil, failures.Wrap(failures.ErrPacking, "pack", "compose",
					fmt.Sprintf("cell (%d,%d) rectangle %v outside frame %v", pl.Coord.Row, pl.Coord.Col, pl.Source, f.Bounds()), nil)
			}
			f.CopyTo(img, pl.Rect.Min, pl.Source)
		}
		tiles = append(tiles, Tile{Image: img, Placements: l.Placements})
	}
	return tiles, nil
}

// Regions builds the dirty regions for coords using g.
func Regions(g grid.Grid, coords []grid.Coord) []Region {
	out := make([]Region, 0, len(coords))
	for _, c := range coords {
		out = append(out, Region{Coord: c, Source: g.CellAt(c)})
	}
	return out
}
