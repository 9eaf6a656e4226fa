package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/oov/psd"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// layeredDecoder reads Photoshop documents. The saved merged composite is
// preferred; without one the visible layers are flattened bottom-up.
type layeredDecoder struct{}

func (d *layeredDecoder) Decode(_ context.Context, path string) (*raster.Raster, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	// The first pass reads the merged image and the layer records but not the
	// layer pixels.
	doc, _, err := psd.Decode(bufio.NewReader(io.NewSectionReader(f, 0, size)), &psd.DecodeOptions{
		SkipLayerImage: true,
		ConfigLoaded:   checkDocument,
	})
	if err != nil {
		return nil, failure("psd", err)
	}
	if doc.Picker != nil && !doc.Picker.Bounds().Empty() {
		return raster.Canonicalize(doc.Picker)
	}

	if err := checkLayers(doc.Layer); err != nil {
		return nil, failure("psd", err)
	}
	doc, _, err = psd.Decode(bufio.NewReader(io.NewSectionReader(f, 0, size)), &psd.DecodeOptions{
		SkipMergedImage: true,
	})
	if err != nil {
		return nil, failure("psd", err)
	}
	flat, err := flattenLayers(doc.Layer)
	if err != nil {
		return nil, failure("psd", err)
	}
	return raster.Canonicalize(flat)
}

func checkDocument(cfg psd.Config) error {
	return raster.CheckDimensions(cfg.Rect.Dx(), cfg.Rect.Dy())
}

// checkLayers bounds the pixels psd allocates for layer and mask channels.
func checkLayers(layers []psd.Layer) error {
	var total int64
	var walk func([]psd.Layer)
	walk = func(ls []psd.Layer) {
		for i := range ls {
			for _, r := range []image.Rectangle{ls[i].Rect, ls[i].Mask.Rect} {
				total += int64(r.Dx()) * int64(r.Dy())
			}
			walk(ls[i].Layer)
		}
	}
	walk(layers)
	if total > raster.MaxPixels {
		return fmt.Errorf("layers hold %d pixels, limit %d", total, raster.MaxPixels)
	}
	return nil
}

// flattenLayers composites visible layers in stacking order onto a
// transparent canvas covering their union.
func flattenLayers(layers []psd.Layer) (*image.NRGBA, error) {
	var bounds image.Rectangle
	visitLayers(layers, func(l *psd.Layer) { bounds = bounds.Union(l.Rect) })
	if bounds.Empty() {
		return nil, errors.New("document has neither a merged image nor visible layers")
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	visitLayers(layers, func(l *psd.Layer) {
		opacity := float64(l.Opacity) / 255
		canvas = imaging.Overlay(canvas, l.Picker, l.Rect.Min.Sub(bounds.Min), opacity)
	})
	return canvas, nil
}

// visitLayers calls fn for every visible leaf layer with pixels, descending
// into visible groups.
func visitLayers(layers []psd.Layer, fn func(*psd.Layer)) {
	for i := range layers {
		l := &layers[i]
		if !l.Visible() {
			continue
		}
		if len(l.Layer) > 0 {
			visitLayers(l.Layer, fn)
			continue
		}
		if l.Picker != nil && !l.Rect.Empty() {
			fn(l)
		}
	}
}
