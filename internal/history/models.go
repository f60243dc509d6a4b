package history

import "time"

// Status is the lifecycle state of an encode run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded encode.
type Run struct {
	ID           string
	InputPath    string
	OutputDir    string
	Status       Status
	Frames       int
	Tiles        int
	Bytes        int64
	VideoWidth   int
	VideoHeight  int
	GridRows     int
	GridCols     int
	Format       string
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary carries the figures recorded when a run succeeds.
type Summary struct {
	Frames      int
	Tiles       int
	Bytes       int64
	VideoWidth  int
	VideoHeight int
	GridRows    int
	GridCols    int
	Format      string
}
