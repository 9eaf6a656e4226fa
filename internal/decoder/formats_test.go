package decoder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/testutil"
)

func decodeBytes(t *testing.T, name string, data []byte) (*raster.Raster, error) {
	t.Helper()
	d := newDispatcher(t, DefaultOptions())
	return d.Decode(testutil.WriteFile(t, t.TempDir(), name, data))
}

func assertRGB(t *testing.T, r *raster.Raster, x, y int, want [3]uint8, delta float64) {
	t.Helper()
	cr, cg, cb := r.RGB(x, y)
	assert.InDelta(t, want[0], cr, delta, "R at %d,%d", x, y)
	assert.InDelta(t, want[1], cg, delta, "G at %d,%d", x, y)
	assert.InDelta(t, want[2], cb, delta, "B at %d,%d", x, y)
}

func TestAlphaRaster_CompositesOverWhite(t *testing.T) {
	fg := color.NRGBA{R: 200, G: 40, B: 10, A: 255}
	r, err := decodeBytes(t, "logo.png", testutil.EncodePNG(t, testutil.TranslucentImage(8, 4, fg)))
	require.NoError(t, err)

	assert.Equal(t, 8, r.Width)
	assert.Equal(t, 4, r.Height)
	assertRGB(t, r, 0, 0, [3]uint8{255, 255, 255}, 0)
	assertRGB(t, r, 7, 3, [3]uint8{200, 40, 10}, 0)
}

func TestAlphaRaster_HalfAlpha(t *testing.T) {
	img := testutil.CreateTestImage(2, 2, color.NRGBA{R: 0, G: 0, B: 0, A: 128})
	r, err := decodeBytes(t, "half.PNG", testutil.EncodePNG(t, img))
	require.NoError(t, err)
	assertRGB(t, r, 1, 1, [3]uint8{127, 127, 127}, 1)
}

func TestAlphaRaster_GIFFirstFrame(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), palette.Plan9)
	for i := range pal.Pix {
		pal.Pix[i] = uint8(pal.Palette.Index(color.RGBA{R: 255, A: 255}))
	}
	r, err := decodeBytes(t, "anim.gif", testutil.EncodeGIF(t, pal))
	require.NoError(t, err)
	assertRGB(t, r, 2, 2, [3]uint8{255, 0, 0}, 0)
}

func TestGenericRaster_JPEGAndBMP(t *testing.T) {
	src := testutil.Gradient(32, 16)

	r, err := decodeBytes(t, "photo.JPEG", testutil.EncodeJPEG(t, src))
	require.NoError(t, err)
	assert.Equal(t, 32, r.Width)
	assert.Equal(t, 16, r.Height)
	assert.True(t, testutil.CompareImages(src, r, 0.03))

	r, err = decodeBytes(t, "scan.bmp", testutil.EncodeBMP(t, src))
	require.NoError(t, err)
	assert.True(t, testutil.CompareImages(src, r, 0))
}

func TestGenericRaster_SniffsMislabelledContent(t *testing.T) {
	src := testutil.Gradient(6, 6)
	r, err := decodeBytes(t, "actually-png.jpg", testutil.EncodePNG(t, src))
	require.NoError(t, err)
	assert.True(t, testutil.CompareImages(src, r, 0))
}

func TestGenericRaster_DropsAlphaWithoutCompositing(t *testing.T) {
	fg := color.NRGBA{R: 30, G: 60, B: 90, A: 255}
	r, err := decodeBytes(t, "alpha.bmp", testutil.EncodePNG(t, testutil.TranslucentImage(4, 2, fg)))
	require.NoError(t, err)
	assertRGB(t, r, 0, 0, [3]uint8{0, 0, 0}, 0)
	assertRGB(t, r, 3, 1, [3]uint8{30, 60, 90}, 0)
}

func TestLayeredDocument_MergedImage(t *testing.T) {
	src := testutil.Gradient(12, 9)
	r, err := decodeBytes(t, "poster.psd", testutil.EncodePSD(t, src))
	require.NoError(t, err)
	assert.Equal(t, 12, r.Width)
	assert.Equal(t, 9, r.Height)
	assert.True(t, testutil.CompareImages(src, r, 0))
}

func TestLayeredDocument_Truncated(t *testing.T) {
	data := testutil.EncodePSD(t, testutil.Gradient(12, 9))
	_, err := decodeBytes(t, "poster.psd", data[:40])
	require.ErrorIs(t, err, raster.ErrDecodeFailure)
}

func TestMultiDimensional_Layouts(t *testing.T) {
	plane := func(n int, v uint16) []uint16 {
		out := make([]uint16, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	concat := func(parts ...[]uint16) []uint16 {
		var out []uint16
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name  string
		pages []testutil.TIFFPage
		want  [3]uint8
	}{
		{
			name:  "16-bit gray is scaled by 256",
			pages: []testutil.TIFFPage{{Width: 8, Height: 6, Bits: 16, Data: plane(48, 0x8040)}},
			want:  [3]uint8{0x80, 0x80, 0x80},
		},
		{
			name: "chunky RGBA keeps the first three samples",
			pages: []testutil.TIFFPage{{Width: 8, Height: 6, Samples: 4,
				Data: concatChunky(48, 10, 20, 30, 0)}},
			want: [3]uint8{10, 20, 30},
		},
		{
			name: "planar five-channel keeps the first three planes",
			pages: []testutil.TIFFPage{{Width: 8, Height: 6, Samples: 5, Planar: true,
				Data: concat(plane(48, 1), plane(48, 2), plane(48, 3), plane(48, 4), plane(48, 5))}},
			want: [3]uint8{1, 2, 3},
		},
		{
			name: "three-page stack becomes RGB",
			pages: []testutil.TIFFPage{
				{Width: 8, Height: 6, Data: plane(48, 70)},
				{Width: 8, Height: 6, Data: plane(48, 80)},
				{Width: 8, Height: 6, Data: plane(48, 90)},
			},
			want: [3]uint8{70, 80, 90},
		},
		{
			name: "two-page stack broadcasts the first page",
			pages: []testutil.TIFFPage{
				{Width: 8, Height: 6, Data: plane(48, 33)},
				{Width: 8, Height: 6, Data: plane(48, 99)},
			},
			want: [3]uint8{33, 33, 33},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := decodeBytes(t, "stack.tif", testutil.EncodeTIFF(binary.LittleEndian, tt.pages...))
			require.NoError(t, err)
			assert.Equal(t, 8, r.Width)
			assert.Equal(t, 6, r.Height)
			assertRGB(t, r, 7, 5, tt.want, 0)
		})
	}
}

func concatChunky(pixels int, samples ...uint16) []uint16 {
	out := make([]uint16, 0, pixels*len(samples))
	for range pixels {
		out = append(out, samples...)
	}
	return out
}

func TestMultiDimensional_FallsBackForPalettedTIFF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 5, 5), color.Palette{
		color.RGBA{A: 255}, color.RGBA{G: 255, A: 255},
	})
	for i := range pal.Pix {
		pal.Pix[i] = 1
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, pal, nil))

	r, err := decodeBytes(t, "indexed.tiff", buf.Bytes())
	require.NoError(t, err)
	assertRGB(t, r, 4, 4, [3]uint8{0, 255, 0}, 0)
}

func TestMultiDimensional_SixteenBitFullScale(t *testing.T) {
	data := testutil.EncodeTIFF(binary.BigEndian, testutil.TIFFPage{
		Width: 4, Height: 1, Bits: 16,
		Data: []uint16{0, 256, 32768, 65280},
	})

	r, err := decodeBytes(t, "depth.tiff", data)
	require.NoError(t, err)
	for x, want := range []uint8{0, 1, 128, 255} {
		assertRGB(t, r, x, 0, [3]uint8{want, want, want}, 0)
	}
}

// TestDecode_OversizedHeadersFail feeds files whose headers declare
// dimensions far beyond their payload. Each must fail without allocating
// for the declared size.
func TestDecode_OversizedHeadersFail(t *testing.T) {
	png := testutil.EncodePNG(t, testutil.Gradient(1, 1))
	binary.BigEndian.PutUint32(png[16:], 65535)
	binary.BigEndian.PutUint32(png[20:], 65535)
	binary.BigEndian.PutUint32(png[29:], crc32.ChecksumIEEE(png[12:29]))

	bmp := testutil.EncodeBMP(t, testutil.Gradient(1, 1))
	binary.LittleEndian.PutUint32(bmp[18:], 60000)
	binary.LittleEndian.PutUint32(bmp[22:], 60000)

	psd := testutil.EncodePSD(t, testutil.Gradient(2, 2))
	binary.BigEndian.PutUint32(psd[14:], 30000)
	binary.BigEndian.PutUint32(psd[18:], 30000)

	tiffBomb := testutil.TIFFHeaderOnly(binary.LittleEndian, 65535, 65535, 3, 16, 16)

	tests := []struct {
		name string
		data []byte
	}{
		{"bomb.tif", tiffBomb},
		{"bomb.dng", tiffBomb},
		{"bomb.png", png},
		{"bomb.bmp", bmp},
		{"bomb.psd", psd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeBytes(t, tt.name, tt.data)
			require.ErrorIs(t, err, raster.ErrDecodeFailure)
		})
	}
}
