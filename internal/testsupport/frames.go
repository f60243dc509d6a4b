package testsupport

import (
	"image"
	"testing"

	"whitewater/internal/frame"
)

// SolidFrame returns an RGB frame with every sample set to value.
func SolidFrame(t testing.TB, index, width, height int, value byte) *frame.Frame {
	t.Helper()

	pix := make([]byte, width*height*frame.Channels)
	for i := range pix {
		pix[i] = value
	}
	f, err := frame.New(index, width, height, frame.Channels, pix)
	if err != nil {
		t.Fatalf("build solid frame: %v", err)
	}
	return f
}

// GradientFrame returns an RGB frame whose samples vary with position and
// seed, so neighbouring cells never share content.
func GradientFrame(t testing.TB, index, width, height int, seed byte) *frame.Frame {
	t.Helper()

	pix := make([]byte, width*height*frame.Channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * frame.Channels
			pix[i] = byte(x*7) + seed
			pix[i+1] = byte(y*11) + seed
			pix[i+2] = byte((x+y)*3) ^ seed
		}
	}
	f, err := frame.New(index, width, height, frame.Channels, pix)
	if err != nil {
		t.Fatalf("build gradient frame: %v", err)
	}
	return f
}

// Clone copies f with a new index.
func Clone(f *frame.Frame, index int) *frame.Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &frame.Frame{Index: index, Width: f.Width, Height: f.Height, Channels: f.Channels, Pix: pix}
}

// ShiftRegion adds delta (wrapping) to every sample of f inside r.
func ShiftRegion(f *frame.Frame, r image.Rectangle, delta byte) {
	r = r.Intersect(f.Bounds())
	stride := f.Stride()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X * f.Channels; x < r.Max.X*f.Channels; x++ {
			f.Pix[y*stride+x] += delta
		}
	}
}
