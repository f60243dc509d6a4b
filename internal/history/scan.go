package history

import (
	"database/sql"
	"time"
)

const runColumns = "id, input_path, output_dir, status, frames, tiles, bytes, video_width, video_height, grid_rows, grid_cols, format, error_kind, error_message, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run        Run
		status     string
		format     sql.NullString
		errorKind  sql.NullString
		errorMsg   sql.NullString
		startedRaw string
		finished   sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.InputPath,
		&run.OutputDir,
		&status,
		&run.Frames,
		&run.Tiles,
		&run.Bytes,
		&run.VideoWidth,
		&run.VideoHeight,
		&run.GridRows,
		&run.GridCols,
		&format,
		&errorKind,
		&errorMsg,
		&startedRaw,
		&finished,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Format = format.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return &run, nil
}

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
