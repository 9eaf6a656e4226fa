package tiffio

import (
	"bytes"
	"encoding/binary"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/testutil"
)

func TestOpen_CameraMagicAccepted(t *testing.T) {
	for _, magic := range []uint16{MagicOlympusRO, MagicOlympusRS, MagicPanasonic} {
		data := testutil.EncodeTIFFRaw(t, testutil.RawFixture{Magic: magic, Preview: image.NewGray(image.Rect(0, 0, 8, 8))})
		f, err := Open(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, magic, f.Magic)
		assert.Len(t, f.Pages, 1)
	}
}

func TestWalk_VisitsSubIFDs(t *testing.T) {
	data := testutil.EncodeTIFFRaw(t, testutil.RawFixture{
		Order:   binary.BigEndian,
		Preview: testutil.Gradient(32, 16),
		Bitmap:  testutil.Gradient(8, 4),
	})
	f, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var jpegs, cfa, visited int
	f.Walk(func(d IFD) {
		visited++
		if d.Has(TagJPEGInterchangeFormat) {
			jpegs++
		}
		if d.Uint(TagPhotometricInterpretation, 0) == 32803 {
			cfa++
		}
	})
	assert.Equal(t, 3, visited)
	assert.Equal(t, 1, jpegs)
	assert.Equal(t, 1, cfa)
}

func TestReadSection_Bounds(t *testing.T) {
	data := testutil.EncodeTIFF(binary.LittleEndian, testutil.TIFFPage{Width: 1, Height: 1, Data: []uint16{7}})
	f, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	head, err := f.ReadSection(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{'I', 'I', 42, 0}, head)

	_, err = f.ReadSection(int64(len(data))-1, 8)
	var fe FormatError
	require.ErrorAs(t, err, &fe)
}

func TestEntry_Uints(t *testing.T) {
	e := Entry{Type: dtShort, Count: 3, value: []byte{0, 1, 0, 2, 0, 3}, order: binary.BigEndian}
	assert.Equal(t, []uint32{1, 2, 3}, e.Uints())

	short := Entry{Type: dtLong, Count: 2, value: []byte{1, 0, 0, 0}, order: binary.LittleEndian}
	assert.Equal(t, []uint32{1}, short.Uints(), "truncated payload yields what is present")
}

func TestUnpackBits(t *testing.T) {
	// literal run of 2, repeat 'z' x3, no-op, literal of 1
	src := []byte{1, 'a', 'b', 0xFE, 'z', 0x80, 0, 'q'}
	out, err := unpackBits(src, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("abzzzq"), out)

	_, err = unpackBits([]byte{5, 'a'}, 6)
	assert.Error(t, err)
}
