package rawthumb

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/testutil"
	"github.com/MeKo-Tech/pixcanon/internal/tiffio"
)

func extract(t *testing.T, data []byte) (*Thumbnail, error) {
	t.Helper()
	return Extract(bytes.NewReader(data), int64(len(data)))
}

func TestExtract_TIFFRawPrefersJPEGPreview(t *testing.T) {
	data := testutil.EncodeTIFFRaw(t, testutil.RawFixture{
		Preview: testutil.Gradient(64, 48),
		Bitmap:  testutil.Gradient(16, 12),
	})

	thumb, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, thumb.Format)
	assert.Equal(t, 64, thumb.Width)
	assert.Equal(t, 48, thumb.Height)
	assert.True(t, isJPEG(thumb.Data))
}

func TestExtract_BitmapWhenNoJPEG(t *testing.T) {
	data := testutil.EncodeTIFFRaw(t, testutil.RawFixture{
		Order:  binary.BigEndian,
		Bitmap: testutil.Gradient(16, 12),
	})

	thumb, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, FormatBitmap, thumb.Format)
	require.NotNil(t, thumb.Image)
	assert.Equal(t, 16, thumb.Image.Bounds().Dx())
	assert.True(t, testutil.CompareImages(testutil.Gradient(16, 12), thumb.Image, 0))
}

func TestExtract_CameraMagic(t *testing.T) {
	data := testutil.EncodeTIFFRaw(t, testutil.RawFixture{
		Magic:   tiffio.MagicOlympusRO,
		Preview: testutil.Gradient(40, 30),
	})

	thumb, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, 40, thumb.Width)
}

func TestExtract_RAF(t *testing.T) {
	thumb, err := extract(t, testutil.EncodeRAF(t, testutil.Gradient(48, 32), 0))
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, thumb.Format)
	assert.Equal(t, 48, thumb.Width)
	assert.Equal(t, 32, thumb.Height)
}

func TestExtract_RAFOutOfRange(t *testing.T) {
	data := testutil.EncodeRAF(t, testutil.Gradient(8, 8), 0)
	binary.BigEndian.PutUint32(data[88:], uint32(len(data)*2))

	_, err := extract(t, data)
	require.ErrorIs(t, err, ErrNoThumbnail)
}

func TestExtract_ScanKeepsLargest(t *testing.T) {
	data := testutil.EncodeEmbeddedJPEGs(t,
		testutil.Gradient(16, 16),
		testutil.Gradient(80, 60),
		testutil.Gradient(32, 24),
	)

	thumb, err := extract(t, data)
	require.NoError(t, err)
	assert.Equal(t, 80, thumb.Width)
	assert.Equal(t, 60, thumb.Height)
}

func TestExtract_ScanAcrossWindows(t *testing.T) {
	jpg := testutil.EncodeJPEG(t, testutil.Gradient(24, 16))
	for _, pad := range []int{scanWindow - 2, scanWindow - 1, scanWindow + 10} {
		data := append(bytes.Repeat([]byte{0x42}, pad), jpg...)

		thumb, err := extract(t, data)
		require.NoError(t, err, "pad %d", pad)
		assert.Equal(t, 24, thumb.Width, "pad %d", pad)
		assert.Equal(t, jpg, thumb.Data, "pad %d", pad)
	}
}

func TestExtract_OversizedBitmapSkipped(t *testing.T) {
	data := testutil.TIFFHeaderOnly(binary.LittleEndian, 65535, 65535, 3, 8, 16)

	_, err := extract(t, data)
	require.ErrorIs(t, err, ErrNoThumbnail)
}

func TestExtract_NoPreview(t *testing.T) {
	tests := map[string][]byte{
		"empty":                {},
		"opaque bytes":         bytes.Repeat([]byte{0x42}, 4096),
		"raw without previews": testutil.EncodeTIFFRaw(t, testutil.RawFixture{}),
		"truncated jpeg":       append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, make([]byte, 8)...),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := extract(t, data)
			require.ErrorIs(t, err, ErrNoThumbnail)
		})
	}
}

func TestJPEGLength_IgnoresTrailingBytes(t *testing.T) {
	jpg := testutil.EncodeJPEG(t, testutil.Gradient(8, 8))
	padded := append(append([]byte(nil), jpg...), 0xFF, 0xD8, 0x00, 0x00)

	assert.Equal(t, len(jpg), jpegLength(padded))
	assert.Zero(t, jpegLength(jpg[:len(jpg)/2]))
}

func TestOrientation(t *testing.T) {
	img := testutil.Gradient(8, 4)

	o, ok, err := Orientation(testutil.EncodeJPEG(t, img))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, o)

	o, ok, err = Orientation(testutil.JPEGWithOrientation(t, img, 6))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, o)
}

func TestOrientation_UnreadableExif(t *testing.T) {
	plain := testutil.EncodeJPEG(t, testutil.Gradient(8, 4))
	payload := []byte("Exif\x00\x00not a tiff header")
	seg := []byte{0xFF, 0xE1, 0, byte(len(payload) + 2)}

	data := append(append(append([]byte(nil), plain[:2]...), seg...), payload...)
	data = append(data, plain[2:]...)

	_, ok, err := Orientation(data)
	assert.True(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read exif")
}

func TestOrientation_MissingTagIsUpright(t *testing.T) {
	tiff := testutil.NewTIFFBuilder(binary.LittleEndian)
	ifd := tiff.WriteIFD([]testutil.TIFFEntry{{Tag: 0x010F, Type: testutil.TIFFASCII, Raw: []byte("cam\x00")}})
	payload := append([]byte("Exif\x00\x00"), tiff.Chain(ifd).Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, byte(len(payload) + 2)}

	plain := testutil.EncodeJPEG(t, testutil.Gradient(8, 4))
	data := append(append(append([]byte(nil), plain[:2]...), seg...), payload...)
	data = append(data, plain[2:]...)

	o, ok, err := Orientation(data)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, o)
}

func TestRotation(t *testing.T) {
	assert.Equal(t, 180, Rotation(3))
	assert.Equal(t, 270, Rotation(6))
	assert.Equal(t, 90, Rotation(8))
	for _, o := range []int{0, 1, 2, 4, 5, 7, 9} {
		assert.Zero(t, Rotation(o), "orientation %d", o)
	}
}
