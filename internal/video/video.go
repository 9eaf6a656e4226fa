// Package video grabs a single still frame from a video container by running
// an external ffmpeg binary.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoFrame is returned when no frame could be produced at the requested offset.
var ErrNoFrame = errors.New("video: no frame")

// DefaultOffset is the seek position used when none is configured.
const DefaultOffset = time.Second

const (
	// maxStderr bounds how much ffmpeg diagnostics is kept for error messages.
	maxStderr = 4 << 10
	// waitDelay bounds how long Wait lingers on pipes after the process is killed.
	waitDelay = 2 * time.Second
)

// FrameGrabber extracts one frame from a video file.
type FrameGrabber interface {
	Grab(ctx context.Context, path string) (image.Image, error)
}

// Grabber runs ffmpeg to extract the frame at Offset as an RGB PNG.
type Grabber struct {
	FFmpegPath string
	Offset     time.Duration
}

// NewGrabber returns a Grabber. An empty path resolves "ffmpeg" on PATH and a
// negative offset is clamped to zero.
func NewGrabber(ffmpegPath string, offset time.Duration) *Grabber {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Grabber{FFmpegPath: ffmpegPath, Offset: max(offset, 0)}
}

// Args returns the ffmpeg command line used for path.
func (g *Grabber) Args(path string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-ss", strconv.FormatFloat(g.Offset.Seconds(), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-pix_fmt", "rgb24",
		"-",
	}
}

// Grab extracts the frame. The child process is always waited for, including
// when ctx is cancelled.
func (g *Grabber) Grab(ctx context.Context, path string) (image.Image, error) {
	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: maxStderr}

	cmd := exec.CommandContext(ctx, g.FFmpegPath, g.Args(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoFrame, g.FFmpegPath)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoFrame, ctx.Err())
		}
		return nil, fmt.Errorf("%w: ffmpeg: %w: %s", ErrNoFrame, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing decoded at offset %s", ErrNoFrame, g.Offset)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame: %w", ErrNoFrame, err)
	}
	return img, nil
}

type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return strings.TrimSpace(b.buf.String()) }
