package source

import (
	"context"
	"fmt"
	"io"

	"whitewater/internal/frame"
)

// Source yields decoded frames in order. Next returns io.EOF once the stream
// is exhausted.
type Source interface {
	Next(ctx context.Context) (*frame.Frame, error)
	// SampleRate is the number of frames yielded per second of source video.
	SampleRate() float64
	Close() error
}

// Estimator is implemented by sources that can predict their frame count.
// Zero means unknown.
type Estimator interface {
	EstimatedFrames() int
}

// Static serves frames held in memory.
type Static struct {
	rate   float64
	frames []*frame.Frame
	pos    int
}

// NewStatic returns a source over frames. Frame indices are rewritten to
// their position.
func NewStatic(rate float64, frames ...*frame.Frame) *Static {
	return &Static{rate: rate, frames: frames}
}

func (s *Static) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	if f == nil {
		return nil, fmt.Errorf("static source: frame %d is nil", s.pos)
	}
	out := *f
	out.Index = s.pos
	s.pos++
	return &out, nil
}

func (s *Static) SampleRate() float64 { return s.rate }

func (s *Static) EstimatedFrames() int { return len(s.frames) }

func (s *Static) Close() error { return nil }
