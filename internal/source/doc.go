// Package source provides the frame sources the encoder consumes.
//
// FFmpeg probes a video with ffprobe and streams raw rgb24 frames out of an
// ffmpeg child process, optionally resampled to a fixed rate. ImageSequence
// reads a directory of stills, and Static serves frames from memory. All of
// them report failures as frame source errors and signal the end of the
// stream with io.EOF.
package source
