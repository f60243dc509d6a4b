package diff_test

import (
	"errors"
	"image"
	"math"
	"testing"

	"whitewater/internal/diff"
	"whitewater/internal/failures"
	"whitewater/internal/grid"
	"whitewater/internal/testsupport"
)

func mustGrid(t *testing.T, w, h int, sizing grid.Sizing) grid.Grid {
	t.Helper()
	g, err := grid.New(w, h, sizing)
	if err != nil {
		t.Fatalf("grid.New returned error: %v", err)
	}
	return g
}

func TestFirstFrameIsFullyDirty(t *testing.T) {
	g := mustGrid(t, 32, 24, grid.BySize(8))
	for _, threshold := range []float64{0, 1, 100, diff.MaxThreshold} {
		engine, err := diff.New(g, threshold, 0)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		diffs, err := engine.Compare(nil, testsupport.SolidFrame(t, 0, 32, 24, 0))
		if err != nil {
			t.Fatalf("Compare returned error: %v", err)
		}
		if len(diffs) != g.Len() {
			t.Fatalf("got %d diffs, want %d", len(diffs), g.Len())
		}
		if dirty := diff.Dirty(diffs); len(dirty) != g.Len() {
			t.Fatalf("threshold %v: %d of %d cells dirty", threshold, len(dirty), g.Len())
		}
	}
}

func TestIdenticalFramesAreClean(t *testing.T) {
	g := mustGrid(t, 33, 17, grid.BySize(8))
	a := testsupport.GradientFrame(t, 0, 33, 17, 5)
	b := testsupport.Clone(a, 1)
	for _, threshold := range []float64{0, 0.5, 10} {
		engine, err := diff.New(g, threshold, 3)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		diffs, err := engine.Compare(a, b)
		if err != nil {
			t.Fatalf("Compare returned error: %v", err)
		}
		if dirty := diff.Dirty(diffs); len(dirty) != 0 {
			t.Fatalf("threshold %v: expected no dirty cells, got %v", threshold, dirty)
		}
	}
}

func TestThresholdIsStrict(t *testing.T) {
	g := mustGrid(t, 16, 16, grid.BySize(8))
	prev := testsupport.SolidFrame(t, 0, 16, 16, 100)
	cur := testsupport.SolidFrame(t, 1, 16, 16, 100)
	testsupport.ShiftRegion(cur, g.Cell(0, 0), 10)

	engine, err := diff.New(g, 10, 1)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	diffs, err := engine.Compare(prev, cur)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if diffs[0].RMS != 10 {
		t.Fatalf("expected RMS 10, got %v", diffs[0].RMS)
	}
	if diffs[0].Dirty {
		t.Fatal("cell with RMS equal to threshold must not be dirty")
	}

	engine, err = diff.New(g, 9.99, 1)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	diffs, err = engine.Compare(prev, cur)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	dirty := diff.Dirty(diffs)
	if len(dirty) != 1 || dirty[0] != (grid.Coord{}) {
		t.Fatalf("expected only (0,0) dirty, got %v", dirty)
	}
}

func TestRMSIsSymmetric(t *testing.T) {
	a := testsupport.GradientFrame(t, 0, 20, 12, 1)
	b := testsupport.GradientFrame(t, 1, 20, 12, 77)
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 20, 12),
		image.Rect(3, 2, 9, 11),
		image.Rect(19, 11, 20, 12),
	} {
		ab := diff.RMS(a, b, r)
		ba := diff.RMS(b, a, r)
		if ab != ba {
			t.Fatalf("RMS over %v not symmetric: %v vs %v", r, ab, ba)
		}
		if ab <= 0 {
			t.Fatalf("expected positive RMS over %v, got %v", r, ab)
		}
	}
}

func TestRMSMatchesDefinition(t *testing.T) {
	a := testsupport.SolidFrame(t, 0, 2, 1, 0)
	b := testsupport.SolidFrame(t, 1, 2, 1, 0)
	// one pixel differs by 6 in every channel: sqrt(3*36 / 6) = sqrt(18)
	testsupport.ShiftRegion(b, image.Rect(0, 0, 1, 1), 6)
	got := diff.RMS(a, b, b.Bounds())
	if math.Abs(got-math.Sqrt(18)) > 1e-12 {
		t.Fatalf("RMS = %v, want %v", got, math.Sqrt(18))
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	g := mustGrid(t, 67, 45, grid.BySize(6))
	a := testsupport.GradientFrame(t, 0, 67, 45, 3)
	b := testsupport.Clone(a, 1)
	testsupport.ShiftRegion(b, image.Rect(10, 10, 40, 20), 4)
	testsupport.ShiftRegion(b, image.Rect(60, 40, 67, 45), 90)

	seq, err := diff.New(g, 1, 1)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	par, err := diff.New(g, 1, 8)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	want, err := seq.Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	got, err := par.Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("cell %d differs: sequential %+v parallel %+v", i, want[i], got[i])
		}
	}
}

func TestCompareRejectsShapeMismatch(t *testing.T) {
	g := mustGrid(t, 16, 16, grid.BySize(8))
	engine, err := diff.New(g, 1, 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := engine.Compare(nil, testsupport.SolidFrame(t, 0, 8, 16, 0)); err == nil {
		t.Fatal("expected error for frame that does not match grid")
	}
}

func TestNewRejectsThresholdOutOfRange(t *testing.T) {
	g := mustGrid(t, 16, 16, grid.BySize(8))
	for _, threshold := range []float64{-0.1, 255.5, math.NaN(), math.Inf(1)} {
		_, err := diff.New(g, threshold, 0)
		if !errors.Is(err, failures.ErrConfiguration) {
			t.Fatalf("threshold %v: expected configuration error, got %v", threshold, err)
		}
	}
}
