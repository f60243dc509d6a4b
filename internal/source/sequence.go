package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"whitewater/internal/failures"
	"whitewater/internal/frame"
)

// DefaultSequenceRate is used for image sequences when no rate is configured.
const DefaultSequenceRate = 10.0

var sequenceExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// ImageSequence decodes the still images in a directory in lexical order.
type ImageSequence struct {
	files []string
	rate  float64
	pos   int
}

// IsSequenceFile reports whether path has an extension the image sequence
// source can decode.
func IsSequenceFile(path string) bool {
	_, ok := sequenceExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// OpenImageSequence lists dir. rate <= 0 uses DefaultSequenceRate.
func OpenImageSequence(dir string, rate float64) (*ImageSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "sequence", "list", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSequenceFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, failures.Wrap(failures.ErrFrameSource, "sequence", "list", dir+" contains no png, jpeg or gif images", nil)
	}
	sort.Strings(files)
	if rate <= 0 {
		rate = DefaultSequenceRate
	}
	return &ImageSequence{files: files, rate: rate}, nil
}

func (s *ImageSequence) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.pos]
	img, err := decodeImage(path)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "sequence", "decode", filepath.Base(path), err)
	}
	f, err := frame.FromImage(s.pos, img)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "sequence", "convert", filepath.Base(path), err)
	}
	s.pos++
	return f, nil
}

func (s *ImageSequence) SampleRate() float64 { return s.rate }

func (s *ImageSequence) EstimatedFrames() int { return len(s.files) }

func (s *ImageSequence) Close() error { return nil }

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
