package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// Channels is the fixed channel count of a canonical raster.
	Channels = 3
	// MaxPixels is the largest pixel count a decoder may allocate for.
	MaxPixels = 1 << 27
)

// ErrDecodeFailure signals that no image could be produced. Every failure on the
// decode path wraps it so callers can test with errors.Is.
var ErrDecodeFailure = errors.New("decode failure")

// ImageProcessingError represents errors that can occur while building or
// transforming a raster.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// Is reports every processing error as a decode failure.
func (e *ImageProcessingError) Is(target error) bool { return target == ErrDecodeFailure }

// CheckDimensions rejects empty sizes and sizes above MaxPixels. Decoders call
// it with header dimensions before allocating pixel buffers.
func CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return &ImageProcessingError{
			Operation: "dimensions",
			Err:       fmt.Errorf("invalid image dimensions: %dx%d", width, height),
		}
	}
	if int64(width)*int64(height) > MaxPixels {
		return &ImageProcessingError{
			Operation: "dimensions",
			Err:       fmt.Errorf("%dx%d exceeds the %d pixel limit", width, height, MaxPixels),
		}
	}
	return nil
}

// Raster is the canonical 8-bit RGB image: Height rows of Width pixels, three
// interleaved channels per pixel, origin at the top-left corner.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed raster.
func New(width, height int) *Raster {
	return &Raster{Width: width, Height: height, Pix: make([]uint8, width*height*Channels)}
}

// Shape returns the (height, width, channels) triple.
func (r *Raster) Shape() (int, int, int) { return r.Height, r.Width, Channels }

// PixOffset returns the index of the red sample of pixel (x, y).
func (r *Raster) PixOffset(x, y int) int { return (y*r.Width + x) * Channels }

// RGB returns the three samples of pixel (x, y).
func (r *Raster) RGB(x, y int) (uint8, uint8, uint8) {
	i := r.PixOffset(x, y)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

// At implements image.Image.
func (r *Raster) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(r.Bounds())) {
		return color.RGBA{}
	}
	cr, cg, cb := r.RGB(x, y)
	return color.RGBA{R: cr, G: cg, B: cb, A: 0xff}
}

// Opaque always reports true: a canonical raster carries no alpha.
func (r *Raster) Opaque() bool { return true }

// Validate checks the raster invariants.
func (r *Raster) Validate() error {
	if r == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("raster is nil")}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("invalid raster dimensions: %dx%d", r.Width, r.Height),
		}
	}
	if len(r.Pix) != r.Width*r.Height*Channels {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("pixel buffer has %d bytes, want %d", len(r.Pix), r.Width*r.Height*Channels),
		}
	}
	return nil
}

// NRGBA returns an opaque *image.NRGBA copy for use with imaging.
func (r *Raster) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i < len(r.Pix); i, j = i+Channels, j+4 {
		dst.Pix[j] = r.Pix[i]
		dst.Pix[j+1] = r.Pix[i+1]
		dst.Pix[j+2] = r.Pix[i+2]
		dst.Pix[j+3] = 0xff
	}
	return dst
}

// FromImage converts any image to a raster, discarding alpha. Colour values are
// taken un-premultiplied, so a translucent pixel keeps its hue.
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "convert", Err: errors.New("input image is nil")}
	}
	if r, ok := img.(*Raster); ok {
		return r.clone(), nil
	}
	src := imaging.Clone(img)
	b := src.Bounds()
	if b.Empty() {
		return nil, &ImageProcessingError{Operation: "convert", Err: errors.New("empty image")}
	}
	out := New(b.Dx(), b.Dy())
	for i, j := 0, 0; j < len(src.Pix); i, j = i+Channels, j+4 {
		out.Pix[i] = src.Pix[j]
		out.Pix[i+1] = src.Pix[j+1]
		out.Pix[i+2] = src.Pix[j+2]
	}
	return out, nil
}

func (r *Raster) clone() *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// EncodePNG writes the raster as an 8-bit RGB PNG.
func EncodePNG(w io.Writer, r *Raster) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return png.Encode(w, r)
}
