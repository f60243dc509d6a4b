// Package codec turns composed tile rasters into JPEG, PNG or GIF bytes.
//
// It is the only place that knows about concrete pixel formats; the packer and
// manifest deal in rectangles. Quality follows the 0-100 JPEG scale and is
// ignored by the lossless formats.
package codec
