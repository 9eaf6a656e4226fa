package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// Decoder is the part of the dispatcher a batch needs.
type Decoder interface {
	DecodeFit(ctx context.Context, path string, maxDimension int) (*raster.Raster, error)
	Class(path string) (decoder.Class, bool)
}

// FileResult is the outcome for a single file. A failed file has Error set
// and zero dimensions.
type FileResult struct {
	Path       string  `json:"path" yaml:"path"`
	Class      string  `json:"class,omitempty" yaml:"class,omitempty"`
	Height     int     `json:"height" yaml:"height"`
	Width      int     `json:"width" yaml:"width"`
	Channels   int     `json:"channels" yaml:"channels"`
	Thumbnail  string  `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the decode or write error for the file, if any.
func (r FileResult) Err() error { return r.err }

// OK reports whether the file decoded.
func (r FileResult) OK() bool { return r.err == nil }

// processSingleFile decodes one file and optionally writes its thumbnail.
func processSingleFile(ctx context.Context, d Decoder, path string, config *Config) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	if class, ok := d.Class(path); ok {
		res.Class = class.String()
	}

	fail := func(err error) FileResult {
		res.err = err
		res.Error = err.Error()
		res.DurationMS = msSince(start)
		return res
	}

	r, err := d.DecodeFit(ctx, path, config.MaxDimension)
	if err != nil {
		return fail(err)
	}
	res.Height, res.Width, res.Channels = r.Shape()

	if config.ThumbnailDir != "" {
		out, err := saveThumbnail(r, path, config.ThumbnailDir)
		if err != nil {
			return fail(err)
		}
		res.Thumbnail = out
	}

	res.DurationMS = msSince(start)
	return res
}

// thumbnailName maps IMG_0001.CR2 to IMG_0001_cr2.png so sidecars with the
// same stem do not collide.
func thumbnailName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext != "" {
		stem += "_" + strings.TrimPrefix(decoder.NormalizeExt(ext), ".")
	}
	return stem + ".png"
}

// saveThumbnail writes r as PNG into dir and returns the output path.
func saveThumbnail(r *raster.Raster, path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	outPath := filepath.Join(dir, thumbnailName(path))
	f, err := os.Create(outPath) //nolint:gosec // G304: outPath is built from the thumbnail dir flag
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail: %w", err)
	}
	if err := raster.EncodePNG(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return outPath, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
