package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"whitewater/internal/failures"
	"whitewater/internal/frame"
	"whitewater/internal/logging"
	"whitewater/internal/media/ffprobe"
)

var probe = ffprobe.Inspect

// FFmpegOptions configures the ffmpeg-backed source.
type FFmpegOptions struct {
	FFmpegBinary  string
	FFprobeBinary string
	// SampleRate resamples the video to this many frames per second. Zero
	// keeps the native rate.
	SampleRate float64
	Logger     *slog.Logger
}

// FFmpeg decodes a video file by piping raw rgb24 frames out of ffmpeg.
type FFmpeg struct {
	path      string
	width     int
	height    int
	rate      float64
	estimated int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *boundedBuffer
	cancel context.CancelFunc
	logger *slog.Logger

	index int
	done  bool
	once  sync.Once
	err   error
}

// OpenFFmpeg probes path and starts the decoder.
func OpenFFmpeg(ctx context.Context, path string, opts FFmpegOptions) (*FFmpeg, error) {
	logger := logging.NewComponentLogger(opts.Logger, "ffmpeg-source")

	info, err := probe(ctx, opts.FFprobeBinary, path)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "probe", path, err)
	}
	stream, ok := info.VideoStream()
	if !ok {
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "probe", path+" has no video stream", nil)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "probe",
			fmt.Sprintf("%s reports invalid dimensions %dx%d", path, stream.Width, stream.Height), nil)
	}
	// ffmpeg autorotates by default, so quarter turns come out transposed.
	width, height := stream.DisplayDimensions()

	rate := opts.SampleRate
	if rate <= 0 {
		rate = stream.FrameRate()
	}
	if rate <= 0 {
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "probe", path+" has no usable frame rate; set a sample rate", nil)
	}

	binary := strings.TrimSpace(opts.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{"-v", "error", "-nostdin", "-i", path, "-an", "-sn"}
	if opts.SampleRate > 0 {
		args = append(args, "-vf", "fps="+strconv.FormatFloat(opts.SampleRate, 'f', -1, 64))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "-")

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "pipe", path, err)
	}
	stderr := &boundedBuffer{limit: 8 << 10}
	cmd.Stderr = stderr

	logger.Debug("starting ffmpeg decode",
		logging.String("command", binary+" "+strings.Join(args, " ")),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Int("rotation", stream.Rotation()),
		logging.Int64("source_bytes", info.SizeBytes()),
		logging.Float64("sample_rate", rate),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "start", binary, err)
	}

	return &FFmpeg{
		path:      path,
		width:     width,
		height:    height,
		rate:      rate,
		estimated: info.EstimateFrames(opts.SampleRate),
		cmd:       cmd,
		stdout:    stdout,
		stderr:    stderr,
		cancel:    cancel,
		logger:    logger,
	}, nil
}

// Next reads the next rgb24 frame from the decoder.
func (s *FFmpeg) Next(ctx context.Context) (*frame.Frame, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pix := make([]byte, s.width*s.height*frame.Channels)
	n, err := io.ReadFull(s.stdout, pix)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.done = true
		if waitErr := s.wait(); waitErr != nil {
			return nil, waitErr
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		_ = s.wait()
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "read",
			fmt.Sprintf("frame %d truncated after %d of %d bytes%s", s.index, n, len(pix), s.stderrDetail()), err)
	default:
		s.done = true
		_ = s.wait()
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "read", fmt.Sprintf("frame %d", s.index), err)
	}

	f, err := frame.New(s.index, s.width, s.height, frame.Channels, pix)
	if err != nil {
		return nil, failures.Wrap(failures.ErrFrameSource, "ffmpeg", "frame", "", err)
	}
	s.index++
	return f, nil
}

func (s *FFmpeg) SampleRate() float64 { return s.rate }

func (s *FFmpeg) EstimatedFrames() int { return s.estimated }

// Close stops the decoder if it is still running.
func (s *FFmpeg) Close() error {
	if !s.done {
		s.done = true
		s.cancel()
		_ = s.wait()
		return nil
	}
	s.cancel()
	return nil
}

func (s *FFmpeg) wait() error {
	s.once.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.err = failures.Wrap(failures.ErrFrameSource, "ffmpeg", "decode", s.path+s.stderrDetail(), err)
		}
	})
	return s.err
}

func (s *FFmpeg) stderrDetail() string {
	msg := strings.TrimSpace(s.stderr.String())
	if msg == "" {
		return ""
	}
	return " (" + msg + ")"
}

// boundedBuffer keeps the first limit bytes written to it.
type boundedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
