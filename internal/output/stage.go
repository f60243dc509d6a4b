package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"whitewater/internal/failures"
	"whitewater/internal/fileutil"
	"whitewater/internal/logging"
	"whitewater/internal/manifest"
)

// previousDir holds the replaced output inside the staging directory until
// Commit finishes.
const previousDir = ".previous"

var moveFile = fileutil.MoveFile

// ErrLocked reports that another encode holds the output directory.
var ErrLocked = errors.New("output directory is locked by another encode")

// Options configures a Stage.
type Options struct {
	// Compress also writes manifest.json.zst.
	Compress bool
	Logger   *slog.Logger
}

// File describes one committed output file.
type File struct {
	Name string
	Size int64
}

// Stage collects encoder output in a hidden sibling directory of the target
// and moves it into place on Commit. The target is locked for the lifetime
// of the stage, and nothing in it changes until Commit.
type Stage struct {
	dir      string
	tmp      string
	lock     *flock.Flock
	compress bool
	logger   *slog.Logger

	mu     sync.Mutex
	files  map[string]int64
	closed bool
}

// Open locks dir and creates the staging directory next to it.
func Open(dir string, opts Options) (*Stage, error) {
	dir = filepath.Clean(dir)
	parent, base := filepath.Dir(dir), filepath.Base(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "prepare", parent, err)
	}

	lock := flock.New(filepath.Join(parent, "."+base+lockSuffix))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "lock", dir, err)
	}
	if !ok {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "lock", dir, ErrLocked)
	}

	tmp, err := os.MkdirTemp(parent, "."+base+stagingMarker)
	if err != nil {
		_ = lock.Unlock()
		return nil, failures.Wrap(failures.ErrPersistence, "output", "stage", parent, err)
	}

	logger := logging.NewComponentLogger(opts.Logger, "output")
	removeOwnOrphans(parent, base, tmp, logger)

	return &Stage{
		dir:      dir,
		tmp:      tmp,
		lock:     lock,
		compress: opts.Compress,
		logger:   logger,
		files:    make(map[string]int64),
	}, nil
}

// Dir returns the final output directory.
func (s *Stage) Dir() string { return s.dir }

// StagingDir returns the directory files are written to before Commit.
func (s *Stage) StagingDir() string { return s.tmp }

// WriteTile stores one encoded tile image.
func (s *Stage) WriteTile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(name, data)
}

// WriteManifest stores manifest.json and, when enabled, its zstd copy.
func (s *Stage) WriteManifest(ctx context.Context, m *manifest.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := manifest.Marshal(m)
	if err != nil {
		return failures.Wrap(failures.ErrPersistence, "output", "marshal manifest", "", err)
	}
	if err := s.write(manifest.FileName, data); err != nil {
		return err
	}
	if s.compress {
		return s.write(manifest.CompressedFileName, manifest.Compress(data))
	}
	return nil
}

func (s *Stage) write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return failures.Wrap(failures.ErrPersistence, "output", "write", name+": stage already closed", nil)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return failures.Wrap(failures.ErrPersistence, "output", "write", fmt.Sprintf("invalid file name %q", name), nil)
	}
	if err := os.WriteFile(filepath.Join(s.tmp, name), data, 0o644); err != nil {
		return failures.Wrap(failures.ErrPersistence, "output", "write", name, err)
	}
	s.files[name] = int64(len(data))
	return nil
}

// Commit sets aside files left by earlier encodes, moves the staged files in
// and releases the lock. If a move fails, the files already moved in are
// removed and the earlier encode is put back.
func (s *Stage) Commit() ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "commit", "stage already closed", nil)
	}
	s.closed = true
	defer s.release()

	if _, ok := s.files[manifest.FileName]; !ok {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "commit", "no manifest staged", nil)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "output", "commit", s.dir, err)
	}
	backup := filepath.Join(s.tmp, previousDir)
	previous, err := setAsideGenerated(s.dir, backup)
	if err != nil {
		restore(previous, s.dir, backup)
		return nil, failures.Wrap(failures.ErrPersistence, "output", "set aside", s.dir, err)
	}

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)

	// Tiles first so a reader never sees a manifest pointing at missing files.
	sort.SliceStable(names, func(i, j int) bool {
		return !isManifest(names[i]) && isManifest(names[j])
	})

	out := make([]File, 0, len(names))
	for _, name := range names {
		if err := moveFile(filepath.Join(s.tmp, name), filepath.Join(s.dir, name)); err != nil {
			for _, f := range out {
				_ = os.Remove(filepath.Join(s.dir, f.Name))
			}
			restore(previous, s.dir, backup)
			return nil, failures.Wrap(failures.ErrPersistence, "output", "commit", name, err)
		}
		out = append(out, File{Name: name, Size: s.files[name]})
	}
	if len(previous) > 0 {
		s.logger.Debug("replaced previous output", logging.Int("files", len(previous)), logging.String("dir", s.dir))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Abort discards staged files and releases the lock. It is safe to call after
// Commit.
func (s *Stage) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

func (s *Stage) release() error {
	rmErr := os.RemoveAll(s.tmp)
	unlockErr := s.lock.Unlock()
	if rmErr != nil {
		return failures.Wrap(failures.ErrPersistence, "output", "cleanup", s.tmp, rmErr)
	}
	if unlockErr != nil {
		return failures.Wrap(failures.ErrPersistence, "output", "unlock", s.dir, unlockErr)
	}
	return nil
}

// IsGenerated reports whether name is a file this encoder writes.
func IsGenerated(name string) bool {
	if isManifest(name) {
		return true
	}
	if !strings.HasPrefix(name, "tile_") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".png", ".gif":
		return true
	}
	return false
}

func isManifest(name string) bool {
	return name == manifest.FileName || name == manifest.CompressedFileName
}

// setAsideGenerated moves the generated files in dir into backup and returns
// their names. On error the names moved so far are still returned.
func setAsideGenerated(dir, backup string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var moved []string
	for _, entry := range entries {
		if entry.IsDir() || !IsGenerated(entry.Name()) {
			continue
		}
		if len(moved) == 0 {
			if err := os.MkdirAll(backup, 0o755); err != nil {
				return nil, err
			}
		}
		if err := os.Rename(filepath.Join(dir, entry.Name()), filepath.Join(backup, entry.Name())); err != nil {
			return moved, err
		}
		moved = append(moved, entry.Name())
	}
	return moved, nil
}

// restore puts set-aside files back. Failures are ignored; the files stay in
// the staging directory until it is removed.
func restore(names []string, dir, backup string) {
	for _, name := range names {
		_ = os.Rename(filepath.Join(backup, name), filepath.Join(dir, name))
	}
}
