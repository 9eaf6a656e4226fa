// Package decoder turns image, raw and video files into canonical RGB
// rasters. The Dispatcher picks a decoder from the file extension; every
// failure is reported as raster.ErrDecodeFailure.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/video"
)

// Options configures the production decoders.
type Options struct {
	// VideoOffset is the seek position of the grabbed video frame.
	VideoOffset time.Duration
	// FFmpegPath is the ffmpeg binary; empty resolves it on PATH.
	FFmpegPath string
	// Grabber replaces the ffmpeg-backed frame grabber.
	Grabber video.FrameGrabber
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Overrides replaces the decoder bound to a class.
	Overrides map[Class]Decoder
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{VideoOffset: video.DefaultOffset}
}

// Dispatcher routes files to the decoder registered for their extension.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// New builds the six production decoders and validates the registry. A
// *RegistryError means the process cannot serve every recognized format and
// should not start.
func New(opts Options) (*Dispatcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grabber := opts.Grabber
	if grabber == nil {
		grabber = video.NewGrabber(opts.FFmpegPath, opts.VideoOffset)
	}

	bindings := map[Class]Decoder{
		ClassLayeredDocument:  &layeredDecoder{},
		ClassMultiDimensional: &multiDimDecoder{logger: logger},
		ClassAlphaRaster:      &alphaDecoder{},
		ClassGenericRaster:    &genericDecoder{},
		ClassCameraRaw:        &cameraRawDecoder{logger: logger},
		ClassVideo:            &videoDecoder{grabber: grabber},
	}
	for c, d := range opts.Overrides {
		bindings[c] = d
	}

	reg, err := NewRegistry(bindings)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{registry: reg, logger: logger}, nil
}

// NewWithRegistry wraps an existing registry.
func NewWithRegistry(reg *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: reg, logger: logger}
}

// Supports reports whether path has a recognized extension.
func (d *Dispatcher) Supports(path string) bool {
	_, ok := ClassOf(Ext(path))
	return ok
}

// Class returns the class path would be decoded as.
func (d *Dispatcher) Class(path string) (Class, bool) {
	return ClassOf(Ext(path))
}

// Decode decodes path with a background context.
func (d *Dispatcher) Decode(path string) (*raster.Raster, error) {
	return d.DecodeContext(context.Background(), path)
}

// DecodeContext decodes path. It never panics: every failure, including a
// panicking decoder, is returned as a *DecodeError matching
// raster.ErrDecodeFailure. Unrecognized extensions fail without invoking any
// decoder.
func (d *Dispatcher) DecodeContext(ctx context.Context, path string) (out *raster.Raster, err error) {
	dec, class, ok := d.registry.Lookup(Ext(path))
	if !ok {
		unsupportedTotal.Inc()
		return nil, &DecodeError{Path: path, Op: "dispatch", Err: ErrUnsupportedExtension}
	}

	start := time.Now()
	status := "ok"
	defer func() {
		if p := recover(); p != nil {
			status = "panic"
			out = nil
			err = &DecodeError{Path: path, Class: class, Op: "decode", Err: fmt.Errorf("%w: panic: %v", raster.ErrDecodeFailure, p)}
		}
		decodeTotal.WithLabelValues(class.String(), status).Inc()
		decodeDuration.WithLabelValues(class.String()).Observe(time.Since(start).Seconds())
		if err != nil {
			d.logger.Warn("Decode failed", "path", path, "class", class.String(), "error", err)
			return
		}
		rasterPixels.WithLabelValues(class.String()).Observe(float64(out.Width * out.Height))
	}()

	out, err = dec.Decode(ctx, path)
	if err == nil {
		if out == nil {
			err = errors.New("decoder returned no raster")
		} else {
			err = out.Validate()
		}
	}
	if err != nil {
		status = "error"
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Path: path, Class: class, Op: "decode", Err: err}
		}
		return nil, err
	}
	return out, nil
}

// DecodeFit decodes path and scales the result so its longer side equals
// maxDimension. A non-positive maxDimension skips the fit.
func (d *Dispatcher) DecodeFit(ctx context.Context, path string, maxDimension int) (*raster.Raster, error) {
	r, err := d.DecodeContext(ctx, path)
	if err != nil || maxDimension <= 0 {
		return r, err
	}
	class, _ := d.Class(path)
	fitted, err := raster.Fit(r, maxDimension)
	if err != nil {
		return nil, &DecodeError{Path: path, Class: class, Op: "fit", Err: err}
	}
	return fitted, nil
}

// checkConfig reads only the header of r through the image format registry
// and rejects dimensions raster.CheckDimensions refuses.
func checkConfig(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return err
	}
	return raster.CheckDimensions(cfg.Width, cfg.Height)
}

// openFile opens path for random access and returns its size.
func openFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: decoding caller-supplied paths is the purpose
	if err != nil {
		return nil, 0, failure("open", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, failure("stat", err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, failure("open", fmt.Errorf("%s is a directory", path))
	}
	return f, st.Size(), nil
}
