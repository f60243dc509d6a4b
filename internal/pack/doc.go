// Package pack arranges dirty cells into compact tile images.
//
// Layout places cells on shelves in the order given; the same input always
// yields the same tiles. Pack composes the laid-out cells into RGBA rasters,
// which the codec package turns into JPEG, PNG or GIF bytes.
package pack
