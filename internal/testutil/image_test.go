package testutil

import (
	"bytes"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradient_Corners(t *testing.T) {
	img := Gradient(10, 5)
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 64, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 64, A: 255}, img.NRGBAAt(9, 4))
}

func TestTranslucentImage_Halves(t *testing.T) {
	img := TranslucentImage(4, 2, color.NRGBA{R: 200, A: 255})
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(3, 1).A)
}

func TestSaveAndLoadImage(t *testing.T) {
	img := Gradient(SmallSize.Width, SmallSize.Height)
	path := filepath.Join(CreateTempDir(t), "nested", "gradient.png")

	SaveImage(t, img, path)
	loaded := LoadImage(t, path)

	assert.Equal(t, img.Bounds(), loaded.Bounds())
	assert.True(t, CompareImages(img, loaded, 0))
}

func TestEncodePNG_Decodes(t *testing.T) {
	data := EncodePNG(t, CreateTestImage(3, 3, color.White))
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
}

func TestCompareImages(t *testing.T) {
	white := CreateTestImage(4, 4, color.White)
	black := CreateTestImage(4, 4, color.Black)

	assert.True(t, CompareImages(white, white, 0))
	assert.False(t, CompareImages(white, black, 0.5))
	assert.False(t, CompareImages(white, CreateTestImage(5, 4, color.White), 1))
}

func TestLoadImageFile_Missing(t *testing.T) {
	_, err := LoadImageFile("/non/existent.png")
	assert.Error(t, err)
}
