package tiffio

import (
	"fmt"
	"io"
)

// Array is an n-dimensional block of unsigned samples in row-major order.
type Array struct {
	Shape         []int
	Data          []uint16
	BitsPerSample int
}

// Ndim returns the number of axes.
func (a *Array) Ndim() int { return len(a.Shape) }

// Index returns the flat offset of the given coordinates.
func (a *Array) Index(coords ...int) int {
	off := 0
	for i, c := range coords {
		off = off*a.Shape[i] + c
	}
	return off
}

// At returns the sample at the given coordinates.
func (a *Array) At(coords ...int) uint16 { return a.Data[a.Index(coords...)] }

// NewArray allocates a zeroed array of the given shape.
func NewArray(bits int, shape ...int) *Array {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Array{Shape: append([]int(nil), shape...), Data: make([]uint16, n), BitsPerSample: bits}
}

// ReadArray reads the main image series of a TIFF file as a raw array:
//
//	one single-sample page            -> (H, W)
//	one chunky page with S samples    -> (H, W, S)
//	one planar page with S samples    -> (S, H, W)
//	N single-sample pages, same shape -> (N, H, W)
//
// Reduced-resolution pages are ignored. Any other arrangement is reported as
// unsupported.
func ReadArray(r io.ReaderAt, size int64) (*Array, error) {
	f, err := Open(r, size)
	if err != nil {
		return nil, err
	}
	if f.Magic != MagicTIFF {
		return nil, UnsupportedError(fmt.Sprintf("magic %#x", f.Magic))
	}

	var pages []IFD
	for _, p := range f.Pages {
		if !Reduced(p) {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, FormatError("only reduced-resolution pages")
	}

	first, err := f.ReadPage(pages[0])
	if err != nil {
		return nil, err
	}
	if len(pages) == 1 {
		return pageArray(first), nil
	}

	if first.SamplesPerPixel != 1 {
		return nil, UnsupportedError("multi-page series with multi-sample pages")
	}
	if int64(len(pages))*int64(len(first.Data)) > MaxSamples {
		return nil, UnsupportedError(fmt.Sprintf("%d pages of %dx%d exceed %d samples",
			len(pages), first.Width, first.Height, MaxSamples))
	}
	out := &Array{
		Shape:         []int{len(pages), first.Height, first.Width},
		Data:          make([]uint16, 0, len(pages)*len(first.Data)),
		BitsPerSample: first.BitsPerSample,
	}
	out.Data = append(out.Data, first.Data...)
	for i, ifd := range pages[1:] {
		p, err := f.ReadPage(ifd)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if p.Width != first.Width || p.Height != first.Height ||
			p.SamplesPerPixel != 1 || p.BitsPerSample != first.BitsPerSample {
			return nil, UnsupportedError(fmt.Sprintf("page %d shape differs from page 0", i+1))
		}
		out.Data = append(out.Data, p.Data...)
	}
	return out, nil
}

func pageArray(p *Page) *Array {
	data := p.Data
	if p.Photometric == PhotometricWhiteIsZero {
		top := uint16(1<<p.BitsPerSample - 1)
		for i, v := range data {
			data[i] = top - v
		}
	}
	a := &Array{Data: data, BitsPerSample: p.BitsPerSample}
	switch {
	case p.SamplesPerPixel == 1:
		a.Shape = []int{p.Height, p.Width}
	case p.Planar:
		a.Shape = []int{p.SamplesPerPixel, p.Height, p.Width}
	default:
		a.Shape = []int{p.Height, p.Width, p.SamplesPerPixel}
	}
	return a
}
