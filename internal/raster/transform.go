package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

// Rotate turns the raster counter-clockwise by a multiple of 90 degrees,
// expanding the canvas to fit. Other angles are rejected.
func Rotate(r *Raster, degrees int) (*Raster, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return r.clone(), nil
	case 90:
		return FromImage(imaging.Rotate90(r))
	case 180:
		return FromImage(imaging.Rotate180(r))
	case 270:
		return FromImage(imaging.Rotate270(r))
	default:
		return nil, &ImageProcessingError{Operation: "rotate", Err: fmt.Errorf("unsupported angle %d", degrees)}
	}
}

// FitSize computes the output size for Fit: the longer side becomes
// maxDimension and the shorter side keeps the aspect ratio, never below 1.
func FitSize(width, height, maxDimension int) (int, int) {
	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return max(w, 1), maxDimension
}

// Fit scales the raster so its longer side equals maxDimension, using box
// (area) resampling. The input is left untouched.
func Fit(r *Raster, maxDimension int) (*Raster, error) {
	if r == nil {
		return nil, &ImageProcessingError{Operation: "fit", Err: errors.New("input raster is nil")}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "fit",
			Err:       fmt.Errorf("degenerate input %dx%d", r.Width, r.Height),
		}
	}
	if maxDimension <= 0 {
		return nil, &ImageProcessingError{
			Operation: "fit",
			Err:       fmt.Errorf("invalid target dimension %d", maxDimension),
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	w, h := FitSize(r.Width, r.Height, maxDimension)
	if w == r.Width && h == r.Height {
		return r.clone(), nil
	}
	resized := imaging.Resize(r, w, h, imaging.Box)
	return FromImage(resized)
}
