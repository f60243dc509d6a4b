package encoder

import (
	"context"
	"sync"

	"whitewater/internal/manifest"
)

// Sink receives the encoder output. Tiles arrive as they are produced; the
// manifest arrives once, after the last frame, and only on success.
type Sink interface {
	WriteTile(ctx context.Context, name string, data []byte) error
	WriteManifest(ctx context.Context, m *manifest.Manifest) error
}

// MemorySink keeps output in memory.
type MemorySink struct {
	mu       sync.Mutex
	Tiles    map[string][]byte
	Order    []string
	Manifest *manifest.Manifest
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Tiles: make(map[string][]byte)}
}

func (s *MemorySink) WriteTile(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tiles[name] = append([]byte(nil), data...)
	s.Order = append(s.Order, name)
	return nil
}

func (s *MemorySink) WriteManifest(_ context.Context, m *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Manifest = m
	return nil
}
