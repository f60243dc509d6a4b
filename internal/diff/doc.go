// Package diff detects which grid cells changed between consecutive frames.
//
// The metric is the root-mean-square of per-sample differences over a cell.
// A cell is dirty only when its RMS strictly exceeds the threshold, and every
// cell of the first frame is dirty because there is nothing to compare it to.
// Rows of cells are split across goroutines; each goroutine owns a disjoint
// slice of the result so no locking is involved and output order is fixed.
package diff
