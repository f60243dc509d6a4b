package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"runtime"
	"strings"
	"sync"

	"whitewater/internal/failures"
)

// Format selects the tile image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

// DefaultQuality matches the quality used when none is configured.
const DefaultQuality = 75

// ParseFormat accepts format names case-insensitively, including "jpg".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpeg", "jpg", "":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	default:
		return "", failures.Configuration("codec", "unsupported output image format %q (want jpeg, png or gif)", value)
	}
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	default:
		return ".jpg"
	}
}

// Codec encodes tile rasters. Quality only affects JPEG.
type Codec struct {
	Format  Format
	Quality int
}

// New validates format and quality.
func New(format Format, quality int) (Codec, error) {
	parsed, err := ParseFormat(string(format))
	if err != nil {
		return Codec{}, err
	}
	if quality < 0 || quality > 100 {
		return Codec{}, failures.Configuration("codec", "quality must be between 0 and 100, got %d", quality)
	}
	return Codec{Format: parsed, Quality: quality}, nil
}

// Encode writes img to w.
func (c Codec) Encode(w io.Writer, img image.Image) error {
	switch c.Format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	default:
		// image/jpeg treats anything below 1 as 1.
		return jpeg.Encode(w, img, &jpeg.Options{Quality: max(c.Quality, 1)})
	}
}

// EncodeAll encodes imgs using up to workers goroutines and returns the
// encoded bytes in input order. The first error wins.
func (c Codec) EncodeAll(ctx context.Context, imgs []image.Image, workers int) ([][]byte, error) {
	out := make([][]byte, len(imgs))
	if len(imgs) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(imgs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	jobs := make(chan int)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				var buf bytes.Buffer
				if err := c.Encode(&buf, imgs[idx]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("encode tile %d as %s: %w", idx, c.Format, err)
					}
					mu.Unlock()
					continue
				}
				out[idx] = buf.Bytes()
			}
		}()
	}

feed:
	for i := range imgs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
