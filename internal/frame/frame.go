package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// Channels is the channel depth of frames produced by the built-in sources.
const Channels = 3

// Frame is an immutable raster of interleaved 8-bit samples tagged with its
// position in the sampled stream.
type Frame struct {
	Index    int
	Width    int
	Height   int
	Channels int
	// Pix holds Height rows of Width*Channels samples, top-left origin.
	Pix []byte
}

// New wraps pix as a frame after checking its length against the dimensions.
func New(index, width, height, channels int, pix []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame %d: invalid dimensions %dx%d", index, width, height)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("frame %d: invalid channel count %d", index, channels)
	}
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("frame %d: pixel buffer has %d bytes, want %d", index, len(pix), want)
	}
	return &Frame{Index: index, Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// FromImage converts img to an RGB frame.
func FromImage(index int, img image.Image) (*Frame, error) {
	if img == nil {
		return nil, errors.New("frame: nil image")
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame %d: empty image bounds %v", index, b)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}

	pix := make([]byte, width*height*Channels)
	for y := 0; y < height; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		dst := pix[y*width*Channels : (y+1)*width*Channels]
		for x := 0; x < width; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return &Frame{Index: index, Width: width, Height: height, Channels: Channels, Pix: pix}, nil
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return f.Width * f.Channels
}

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// SameShape reports whether other has identical dimensions and channel depth.
func (f *Frame) SameShape(other *Frame) bool {
	if f == nil || other == nil {
		return false
	}
	return f.Width == other.Width && f.Height == other.Height && f.Channels == other.Channels
}

// Crop copies the samples inside r into a fresh RGBA image whose origin is (0, 0).
// r is clipped to the frame bounds.
func (f *Frame) Crop(r image.Rectangle) *image.RGBA {
	r = r.Intersect(f.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	f.CopyTo(out, image.Point{}, r)
	return out
}

// CopyTo writes the samples inside src into dst with src.Min mapped to at.
func (f *Frame) CopyTo(dst *image.RGBA, at image.Point, src image.Rectangle) {
	src = src.Intersect(f.Bounds())
	stride := f.Stride()
	for y := 0; y < src.Dy(); y++ {
		row := f.Pix[(src.Min.Y+y)*stride:]
		off := dst.PixOffset(at.X, at.Y+y)
		for x := 0; x < src.Dx(); x++ {
			s := row[(src.Min.X+x)*f.Channels:]
			d := dst.Pix[off+x*4 : off+x*4+4]
			switch f.Channels {
			case 1:
				d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 0xff
			case 2:
				d[0], d[1], d[2], d[3] = s[0], s[0], s[0], s[1]
			case 3:
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
			default:
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], s[3]
			}
		}
	}
}
