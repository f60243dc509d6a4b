// Package frame holds the decoded raster type shared by frame sources, the
// diff engine and the tile packer.
package frame
