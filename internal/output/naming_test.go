package output_test

import (
	"path/filepath"
	"testing"

	"whitewater/internal/output"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip", "clip"},
		{"Café Olé", "Cafe_Ole"},
		{"  spaced   out  ", "spaced_out"},
		{"naïve-video.v2", "naive-video.v2"},
		{"日本", "output"},
		{"..hidden", "hidden"},
	}
	for _, tt := range tests {
		if got := output.SafeName(tt.in); got != tt.want {
			t.Fatalf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultDir(t *testing.T) {
	tests := []struct {
		name  string
		input string
		root  string
		isDir bool
		want  string
	}{
		{"next to input", "/videos/Crème Brûlée.mp4", "", false, "/videos/Creme_Brulee"},
		{"under root", "/videos/clip.mov", "/srv/out", false, "/srv/out/clip"},
		{"sequence dir", "/frames/shot1/", "", true, "/frames/shot1_whitewater"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := output.DefaultDir(tt.input, tt.root, tt.isDir); got != filepath.FromSlash(tt.want) {
				t.Fatalf("DefaultDir = %q, want %q", got, tt.want)
			}
		})
	}
}
