// Package grid maps frame dimensions onto a fixed grid of cells.
//
// A Grid is computed once from the first frame and then frozen. Cells cover the
// frame exactly: trailing cells in the last row and column absorb whatever
// remainder the nominal cell size leaves, so there is never a gap or an
// overlap between cells.
package grid
