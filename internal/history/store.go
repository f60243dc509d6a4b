package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"whitewater/internal/failures"
)

// ErrNotFound is returned when no run matches an identifier.
var ErrNotFound = errors.New("encode run not found")

// Store records encode runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "open", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "open", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, failures.Wrap(failures.ErrPersistence, "history", "open", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, failures.Wrap(failures.ErrPersistence, "history", "schema", path, err)
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a running encode and returns it with a fresh identifier.
func (s *Store) Begin(ctx context.Context, input, outputDir string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		InputPath: input,
		OutputDir: outputDir,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO encode_runs (id, input_path, output_dir, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.OutputDir, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "begin", input, err)
	}
	return run, nil
}

// Finish marks id as succeeded with the given summary.
func (s *Store) Finish(ctx context.Context, id string, sum Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE encode_runs SET status = ?, frames = ?, tiles = ?, bytes = ?,
            video_width = ?, video_height = ?, grid_rows = ?, grid_cols = ?, format = ?,
            finished_at = ?
        WHERE id = ?`,
		string(StatusSucceeded), sum.Frames, sum.Tiles, sum.Bytes,
		sum.VideoWidth, sum.VideoHeight, sum.GridRows, sum.GridCols, nullableString(sum.Format),
		formatTime(s.now()), id,
	)
	return checkUpdate(res, err, "finish", id)
}

// Fail marks id as failed, recording the error and its kind.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	var kind, message string
	if cause != nil {
		kind = failures.Kind(cause)
		message = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE encode_runs SET status = ?, error_kind = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed), nullableString(kind), nullableString(message), formatTime(s.now()), id,
	)
	return checkUpdate(res, err, "fail", id)
}

// List returns the most recent runs first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM encode_runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "list", "", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, failures.Wrap(failures.ErrPersistence, "history", "list", "", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "list", "", err)
	}
	return runs, nil
}

// Get returns the run whose identifier equals id or, failing that, the single
// run whose identifier starts with id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM encode_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "get", id, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM encode_runs WHERE id LIKE ? ORDER BY id LIMIT 2", id+"%")
	if err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "get", id, err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, failures.Wrap(failures.ErrPersistence, "history", "get", id, err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, failures.Wrap(failures.ErrPersistence, "history", "get", id, err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("encode run prefix %q is ambiguous", id)
	}
}

func checkUpdate(res sql.Result, err error, op, id string) error {
	if err != nil {
		return failures.Wrap(failures.ErrPersistence, "history", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return failures.Wrap(failures.ErrPersistence, "history", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
