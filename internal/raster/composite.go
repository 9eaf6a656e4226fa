package raster

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// HasAlpha reports whether img carries transparency that would change its
// appearance over a background.
func HasAlpha(img image.Image) bool {
	if img == nil {
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// CompositeOverWhite blends img over an opaque white canvas of the same size:
// out = fg*a + 255*(1-a) with a normalised to [0,1].
func CompositeOverWhite(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "composite", Err: errors.New("input image is nil")}
	}
	src := imaging.Clone(img)
	b := src.Bounds()
	if b.Empty() {
		return nil, &ImageProcessingError{Operation: "composite", Err: errors.New("empty image")}
	}
	out := New(b.Dx(), b.Dy())
	for i, j := 0, 0; j < len(src.Pix); i, j = i+Channels, j+4 {
		a := src.Pix[j+3]
		switch a {
		case 0xff:
			out.Pix[i] = src.Pix[j]
			out.Pix[i+1] = src.Pix[j+1]
			out.Pix[i+2] = src.Pix[j+2]
		case 0:
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0xff, 0xff, 0xff
		default:
			af := float64(a) / 255
			out.Pix[i] = blendWhite(src.Pix[j], af)
			out.Pix[i+1] = blendWhite(src.Pix[j+1], af)
			out.Pix[i+2] = blendWhite(src.Pix[j+2], af)
		}
	}
	return out, nil
}

func blendWhite(c uint8, a float64) uint8 {
	v := math.Round(float64(c)*a + 255*(1-a))
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Canonicalize composites img over white when it has alpha and converts it
// straight to RGB otherwise.
func Canonicalize(img image.Image) (*Raster, error) {
	if HasAlpha(img) {
		return CompositeOverWhite(img)
	}
	return FromImage(img)
}
