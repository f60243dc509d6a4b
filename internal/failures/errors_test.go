package failures_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"whitewater/internal/failures"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	err := failures.Wrap(failures.ErrPersistence, "output", "write tile", "tile_00001.jpg", io.ErrShortWrite)
	if !errors.Is(err, failures.ErrPersistence) {
		t.Fatalf("expected persistence marker, got %v", err)
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	want := "persistence error: output: write tile: tile_00001.jpg: short write"
	if err.Error() != want {
		t.Fatalf("unexpected message: got %q want %q", err.Error(), want)
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := failures.Wrap(failures.ErrPacking, " ", "", "", nil)
	if !strings.HasSuffix(err.Error(), "encode failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"configuration", failures.Configuration("grid", "zero rows"), failures.KindConfiguration},
		{"frame source", failures.Wrap(failures.ErrFrameSource, "ffmpeg", "read", "", io.ErrUnexpectedEOF), failures.KindFrameSource},
		{"packing", failures.Wrap(failures.ErrPacking, "pack", "", "too large", nil), failures.KindPacking},
		{"persistence", failures.Wrap(failures.ErrPersistence, "output", "", "", nil), failures.KindPersistence},
		{"canceled", fmt.Errorf("encode: %w", context.Canceled), failures.KindCanceled},
		{"unknown", errors.New("boom"), failures.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failures.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind() = %q, want %q", got, tc.want)
			}
		})
	}
}
