package diff

import (
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"whitewater/internal/failures"
	"whitewater/internal/frame"
	"whitewater/internal/grid"
)

// MaxThreshold is the largest meaningful RMS threshold for 8-bit samples.
const MaxThreshold = 255.0

// CellDiff is the comparison result for one cell of a frame pair.
type CellDiff struct {
	Coord grid.Coord
	// RMS is +Inf when there was no previous frame to compare against.
	RMS   float64
	Dirty bool
}

// Engine compares consecutive frames cell by cell.
type Engine struct {
	grid      grid.Grid
	threshold float64
	workers   int
}

// ValidateThreshold reports a configuration error for thresholds outside [0, MaxThreshold].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > MaxThreshold {
		return failures.Configuration("diff", "rms threshold must be between 0 and %g, got %v", MaxThreshold, threshold)
	}
	return nil
}

// New builds an engine for g. workers <= 0 uses GOMAXPROCS.
func New(g grid.Grid, threshold float64, workers int) (*Engine, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, failures.Configuration("diff", "grid has no cells")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{grid: g, threshold: threshold, workers: workers}, nil
}

// Compare returns one CellDiff per grid cell in row-major order. A nil prev
// marks every cell dirty.
func (e *Engine) Compare(prev, cur *frame.Frame) ([]CellDiff, error) {
	if cur == nil {
		return nil, errors.New("diff: current frame is nil")
	}
	if cur.Width != e.grid.FrameWidth || cur.Height != e.grid.FrameHeight {
		return nil, fmt.Errorf("diff: frame %d is %dx%d, grid expects %dx%d", cur.Index, cur.Width, cur.Height, e.grid.FrameWidth, e.grid.FrameHeight)
	}

	out := make([]CellDiff, e.grid.Len())
	if prev == nil {
		for i, c := range e.grid.Coords() {
			out[i] = CellDiff{Coord: c, RMS: math.Inf(1), Dirty: true}
		}
		return out, nil
	}
	if !prev.SameShape(cur) {
		return nil, fmt.Errorf("diff: frame %d shape %dx%dx%d differs from frame %d shape %dx%dx%d",
			cur.Index, cur.Width, cur.Height, cur.Channels, prev.Index, prev.Width, prev.Height, prev.Channels)
	}

	rows := e.grid.Rows
	workers := min(e.workers, rows)
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		r0 := i * rowsPerWorker
		if r0 >= rows {
			break
		}
		r1 := min(r0+rowsPerWorker, rows)
		wg.Add(1)
		go e.compareRows(prev, cur, out, r0, r1, &wg)
	}
	wg.Wait()
	return out, nil
}

// compareRows fills out for grid rows [r0, r1). Each call writes a disjoint
// range of out.
func (e *Engine) compareRows(prev, cur *frame.Frame, out []CellDiff, r0, r1 int, wg *sync.WaitGroup) {
	defer wg.Done()
	for row := r0; row < r1; row++ {
		for col := 0; col < e.grid.Cols; col++ {
			c := grid.Coord{Row: row, Col: col}
			rms := RMS(prev, cur, e.grid.Cell(row, col))
			out[e.grid.Position(c)] = CellDiff{Coord: c, RMS: rms, Dirty: rms > e.threshold}
		}
	}
}

// RMS returns the root-mean-square difference between a and b over r. Both
// frames must share a shape; r is clipped to the frame bounds.
func RMS(a, b *frame.Frame, r image.Rectangle) float64 {
	r = r.Intersect(a.Bounds())
	if r.Empty() {
		return 0
	}
	stride := a.Stride()
	span := r.Dx() * a.Channels
	var sum uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + r.Min.X*a.Channels
		pa := a.Pix[off : off+span]
		pb := b.Pix[off : off+span]
		for i := range pa {
			d := int64(pa[i]) - int64(pb[i])
			sum += uint64(d * d)
		}
	}
	n := float64(r.Dx() * r.Dy() * a.Channels)
	return math.Sqrt(float64(sum) / n)
}

// Dirty returns the coordinates of dirty cells, preserving order.
func Dirty(diffs []CellDiff) []grid.Coord {
	out := make([]grid.Coord, 0, len(diffs))
	for _, d := range diffs {
		if d.Dirty {
			out = append(out, d.Coord)
		}
	}
	return out
}
