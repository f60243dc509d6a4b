// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: video stream properties (dimensions, frame rates, frame count)
//   - Format: container-level metadata (duration, size)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// The ffmpeg frame source uses these helpers to learn the raster size it must
// read from the decoder pipe and to estimate the frame count for progress.
package ffprobe
