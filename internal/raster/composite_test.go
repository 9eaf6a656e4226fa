package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeOverWhite_AlphaExtremes(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 100, B: 200, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 100, B: 200, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 100, B: 200, A: 128})

	r, err := CompositeOverWhite(img)
	require.NoError(t, err)

	red, green, blue := r.RGB(0, 0)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{red, green, blue}, "transparent pixel becomes white")

	red, green, blue = r.RGB(1, 0)
	assert.Equal(t, []uint8{10, 100, 200}, []uint8{red, green, blue}, "opaque pixel is unchanged")

	// alpha 128/255 is as close to one half as 8 bits allow
	red, green, blue = r.RGB(2, 0)
	assert.InDelta(t, (10+255)/2.0, float64(red), 1)
	assert.InDelta(t, (100+255)/2.0, float64(green), 1)
	assert.InDelta(t, (200+255)/2.0, float64(blue), 1)
}

func TestCompositeOverWhite_HalfAlpha16Bit(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	img.SetNRGBA64(0, 0, color.NRGBA64{R: 0, G: 0x8080, B: 0xffff, A: 0x8000})

	r, err := CompositeOverWhite(img)
	require.NoError(t, err)
	red, green, blue := r.RGB(0, 0)
	assert.InDelta(t, 127.5, float64(red), 1)
	assert.InDelta(t, (128+255)/2.0, float64(green), 1)
	assert.InDelta(t, 255, float64(blue), 1)
}

func TestHasAlpha(t *testing.T) {
	opaque := fillNRGBA(2, 2, color.NRGBA{R: 1, A: 255})
	assert.False(t, HasAlpha(opaque))

	translucent := fillNRGBA(2, 2, color.NRGBA{R: 1, A: 254})
	assert.True(t, HasAlpha(translucent))

	assert.False(t, HasAlpha(image.NewGray(image.Rect(0, 0, 2, 2))))
	assert.False(t, HasAlpha(nil))
}

func TestCanonicalize_PassThroughWithoutAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	img.Set(1, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	r, err := Canonicalize(img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 8, 7, 1, 2, 3}, r.Pix)
}

func TestCompositeOverWhite_OpaqueIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("opaque source composites to its own RGB", prop.ForAll(
		func(cr, cg, cb uint8) bool {
			img := fillNRGBA(3, 2, color.NRGBA{R: cr, G: cg, B: cb, A: 255})
			r, err := CompositeOverWhite(img)
			if err != nil {
				return false
			}
			direct, err := FromImage(img)
			if err != nil {
				return false
			}
			for i := range r.Pix {
				if r.Pix[i] != direct.Pix[i] {
					return false
				}
			}
			return true
		},
		gen.UInt8(), gen.UInt8(), gen.UInt8(),
	))

	properties.Property("composite never darkens below the source", prop.ForAll(
		func(c, a uint8) bool {
			img := fillNRGBA(1, 1, color.NRGBA{R: c, G: c, B: c, A: a})
			r, err := CompositeOverWhite(img)
			if err != nil {
				return false
			}
			return r.Pix[0] >= c
		},
		gen.UInt8(), gen.UInt8(),
	))

	properties.TestingRun(t)
}
