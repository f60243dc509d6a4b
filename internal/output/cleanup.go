package output

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"whitewater/internal/logging"
)

const (
	stagingMarker = ".staging-"
	lockSuffix    = ".lock"
)

// CleanResult lists staging directories removed by a cleanup and the ones
// that could not be removed.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with the error that kept it in place.
type CleanupError struct {
	Path string
	Err  error
}

// CleanOrphans removes staging directories under parent left by encodes that
// crashed before Commit or Abort. A staging directory is an orphan when the
// lock of its output directory can be taken, so directories of running
// encodes are skipped.
func CleanOrphans(parent string, logger *slog.Logger) CleanResult {
	var result CleanResult
	logger = logging.NewComponentLogger(logger, "output")

	entries, err := os.ReadDir(parent)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: parent, Err: err})
		}
		return result
	}

	byBase := map[string][]string{}
	for _, entry := range entries {
		base, ok := stagingBase(entry.Name())
		if !ok || !entry.IsDir() {
			continue
		}
		byBase[base] = append(byBase[base], filepath.Join(parent, entry.Name()))
	}

	for base, dirs := range byBase {
		lock := flock.New(filepath.Join(parent, "."+base+lockSuffix))
		ok, err := lock.TryLock()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: lock.Path(), Err: err})
			continue
		}
		if !ok {
			logger.Debug("staging directory in use", logging.String("output", base))
			continue
		}
		removeStaging(dirs, logger, &result)
		_ = lock.Unlock()
	}
	return result
}

// removeOwnOrphans clears earlier staging directories for base. The caller
// holds the output lock.
func removeOwnOrphans(parent, base, keep string, logger *slog.Logger) {
	matches, err := filepath.Glob(filepath.Join(parent, "."+base+stagingMarker+"*"))
	if err != nil {
		return
	}
	var stale []string
	for _, m := range matches {
		if m != keep {
			stale = append(stale, m)
		}
	}
	var result CleanResult
	removeStaging(stale, logger, &result)
}

func removeStaging(dirs []string, logger *slog.Logger, result *CleanResult) {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Err: err})
			logging.WarnWithContext(logger, "failed to remove orphaned staging directory", "staging_cleanup_failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir)
		logger.Info("removed orphaned staging directory",
			logging.String("path", dir),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
}

// stagingBase extracts the output directory name from ".<base>.staging-XXXX".
func stagingBase(name string) (string, bool) {
	if !strings.HasPrefix(name, ".") {
		return "", false
	}
	idx := strings.LastIndex(name, stagingMarker)
	if idx <= 1 {
		return "", false
	}
	return name[1:idx], true
}
