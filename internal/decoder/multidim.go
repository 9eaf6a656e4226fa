package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	_ "golang.org/x/image/tiff" // generic TIFF fallback

	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/tiffio"
)

// multiDimDecoder reads TIFF stacks as raw arrays and maps them to RGB. Files
// the array reader cannot handle go through the generic image decoder.
type multiDimDecoder struct {
	logger *slog.Logger
}

func (d *multiDimDecoder) Decode(_ context.Context, path string) (*raster.Raster, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	arr, err := tiffio.ReadArray(f, size)
	if err == nil {
		var r *raster.Raster
		if r, err = canonicalizeArray(arr); err == nil {
			return r, nil
		}
	}

	d.logger.Debug("TIFF array read failed, falling back to generic decoder", "path", path, "error", err)
	decodeFallbacks.WithLabelValues(ClassMultiDimensional.String()).Inc()

	if cerr := checkConfig(io.NewSectionReader(f, 0, size)); cerr != nil {
		return nil, failure("tiff", fmt.Errorf("array read: %w; generic decode: %w", err, cerr))
	}
	img, _, ferr := image.Decode(io.NewSectionReader(f, 0, size))
	if ferr != nil {
		return nil, failure("tiff", fmt.Errorf("array read: %w; generic decode: %w", err, ferr))
	}
	return raster.Canonicalize(img)
}

// canonicalizeArray maps a 2-D or 3-D sample array to RGB:
//
//   - 2-D arrays are grayscale.
//   - For 3-D arrays the channel axis is the first axis of minimum extent.
//     When that is axis 0 the array is read channels-first; otherwise it is
//     read channels-last as stored.
//   - More than three channels keep the first three; one or two channels
//     broadcast the first as gray.
//   - Samples deeper than 8 bits are divided by 1<<(bits-8).
func canonicalizeArray(a *tiffio.Array) (*raster.Raster, error) {
	var h, w, c int
	var index func(y, x, ch int) int

	switch a.Ndim() {
	case 2:
		h, w, c = a.Shape[0], a.Shape[1], 1
		index = func(y, x, _ int) int { return y*w + x }
	case 3:
		s := a.Shape
		if argmin(s) == 0 {
			c, h, w = s[0], s[1], s[2]
			index = func(y, x, ch int) int { return (ch*h+y)*w + x }
		} else {
			h, w, c = s[0], s[1], s[2]
			index = func(y, x, ch int) int { return (y*w+x)*c + ch }
		}
	default:
		return nil, failure("canonicalize", fmt.Errorf("%d-D array", a.Ndim()))
	}
	if h <= 0 || w <= 0 || c <= 0 {
		return nil, failure("canonicalize", fmt.Errorf("array shape %v", a.Shape))
	}
	if len(a.Data) < h*w*c {
		return nil, failure("canonicalize", errors.New("array data shorter than its shape"))
	}

	shift := 0
	if a.BitsPerSample > 8 {
		shift = a.BitsPerSample - 8
	}
	sample := func(y, x, ch int) uint8 { return uint8(a.Data[index(y, x, ch)] >> shift) }

	out := raster.New(w, h)
	for y := range h {
		for x := range w {
			i := out.PixOffset(x, y)
			if c >= 3 {
				out.Pix[i] = sample(y, x, 0)
				out.Pix[i+1] = sample(y, x, 1)
				out.Pix[i+2] = sample(y, x, 2)
				continue
			}
			g := sample(y, x, 0)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = g, g, g
		}
	}
	return out, nil
}

// argmin returns the index of the first smallest value.
func argmin(s []int) int {
	best := 0
	for i, v := range s {
		if v < s[best] {
			best = i
		}
	}
	return best
}
