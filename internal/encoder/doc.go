// Package encoder drives the diff pipeline over a frame source.
//
// The grid is fixed by the first frame. Each frame is diffed against the one
// before it, the dirty cells are packed into tile images, the tiles are
// encoded in parallel and handed to a Sink in order, and the frame record is
// appended to the manifest. The manifest reaches the Sink only after the
// source reports io.EOF; any error ends the encode without one.
package encoder
