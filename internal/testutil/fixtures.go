package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// ExifSegment returns a JPEG APP1 segment whose IFD0 carries only the
// orientation tag.
func ExifSegment(orientation int) []byte {
	tiff := NewTIFFBuilder(binary.BigEndian)
	ifd := tiff.WriteIFD([]TIFFEntry{{Tag: 0x0112, Type: TIFFShort, Values: []uint32{uint32(orientation)}}})
	payload := append([]byte("Exif\x00\x00"), tiff.Chain(ifd).Bytes()...)

	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// JPEGWithOrientation encodes img as JPEG with an EXIF orientation segment
// placed directly after the SOI marker.
func JPEGWithOrientation(t *testing.T, img image.Image, orientation int) []byte {
	t.Helper()

	plain := EncodeJPEG(t, img)
	require.Equal(t, []byte{0xFF, 0xD8}, plain[:2])

	out := make([]byte, 0, len(plain)+64)
	out = append(out, plain[:2]...)
	out = append(out, ExifSegment(orientation)...)
	return append(out, plain[2:]...)
}

// EncodePSD writes a flat 8-bit RGB Photoshop document with no layers and a
// raw merged image. Alpha in img is dropped.
func EncodePSD(t *testing.T, img image.Image) []byte {
	t.Helper()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	require.Positive(t, w)
	require.Positive(t, h)

	var buf bytes.Buffer
	write := func(v any) { require.NoError(t, binary.Write(&buf, binary.BigEndian, v)) }

	buf.WriteString("8BPS")
	write(uint16(1))
	buf.Write(make([]byte, 6))
	write(uint16(3))
	write(uint32(h))
	write(uint32(w))
	write(uint16(8))
	write(uint16(3))

	write(uint32(0)) // colour mode data
	write(uint32(0)) // image resources
	write(uint32(0)) // layer and mask information

	write(uint16(0)) // raw image data
	planes := [3][]byte{make([]byte, w*h), make([]byte, w*h), make([]byte, w*h)}
	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			planes[0][i] = uint8(r >> 8)
			planes[1][i] = uint8(g >> 8)
			planes[2][i] = uint8(bl >> 8)
		}
	}
	for _, p := range planes {
		buf.Write(p)
	}
	return buf.Bytes()
}

// RawFixture describes a TIFF-based camera raw container.
type RawFixture struct {
	Order binary.ByteOrder
	// Magic overrides the header magic (0x4f52 for Olympus, 0x55 for Panasonic).
	Magic uint16
	// Preview is stored as a JPEG through JPEGInterchangeFormat in a SubIFD.
	Preview image.Image
	// Orientation is written into the preview's EXIF when non-zero.
	Orientation int
	// Bitmap is stored as an uncompressed 8-bit RGB strip in IFD0.
	Bitmap image.Image
}

// EncodeTIFFRaw builds a raw container: IFD0 holds the optional bitmap
// thumbnail and links, through SubIFDs, to the optional JPEG preview and a
// 16-bit CFA sensor plane that must never be chosen as a preview.
func EncodeTIFFRaw(t *testing.T, f RawFixture) []byte {
	t.Helper()

	order := f.Order
	if order == nil {
		order = binary.LittleEndian
	}
	b := NewTIFFBuilder(order)
	if f.Magic != 0 {
		b.SetMagic(f.Magic)
	}

	var subIFDs []uint32
	if f.Preview != nil {
		var data []byte
		if f.Orientation != 0 {
			data = JPEGWithOrientation(t, f.Preview, f.Orientation)
		} else {
			data = EncodeJPEG(t, f.Preview)
		}
		off := b.AddBlob(data)
		pb := f.Preview.Bounds()
		subIFDs = append(subIFDs, b.WriteIFD([]TIFFEntry{
			{Tag: 254, Type: TIFFLong, Values: []uint32{1}},
			{Tag: 256, Type: TIFFLong, Values: []uint32{uint32(pb.Dx())}},
			{Tag: 257, Type: TIFFLong, Values: []uint32{uint32(pb.Dy())}},
			{Tag: 259, Type: TIFFShort, Values: []uint32{6}},
			{Tag: 513, Type: TIFFLong, Values: []uint32{off}},
			{Tag: 514, Type: TIFFLong, Values: []uint32{uint32(len(data))}},
		}))
	}

	const sensor = 16
	cfa := make([]byte, sensor*sensor*2)
	for i := range sensor * sensor {
		order.PutUint16(cfa[2*i:], uint16(i*97))
	}
	cfaOff := b.AddBlob(cfa)
	subIFDs = append(subIFDs, b.WriteIFD([]TIFFEntry{
		{Tag: 254, Type: TIFFLong, Values: []uint32{0}},
		{Tag: 256, Type: TIFFLong, Values: []uint32{sensor}},
		{Tag: 257, Type: TIFFLong, Values: []uint32{sensor}},
		{Tag: 258, Type: TIFFShort, Values: []uint32{16}},
		{Tag: 259, Type: TIFFShort, Values: []uint32{1}},
		{Tag: 262, Type: TIFFShort, Values: []uint32{32803}},
		{Tag: 273, Type: TIFFLong, Values: []uint32{cfaOff}},
		{Tag: 277, Type: TIFFShort, Values: []uint32{1}},
		{Tag: 279, Type: TIFFLong, Values: []uint32{uint32(len(cfa))}},
	}))

	ifd0 := []TIFFEntry{
		{Tag: 271, Type: TIFFASCII, Raw: []byte("Fixture\x00")},
		{Tag: 330, Type: TIFFLong, Values: subIFDs},
	}
	if f.Bitmap != nil {
		bb := f.Bitmap.Bounds()
		pix := make([]byte, 0, bb.Dx()*bb.Dy()*3)
		for y := bb.Min.Y; y < bb.Max.Y; y++ {
			for x := bb.Min.X; x < bb.Max.X; x++ {
				r, g, bl, _ := f.Bitmap.At(x, y).RGBA()
				pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}
		}
		off := b.AddBlob(pix)
		ifd0 = append(ifd0,
			TIFFEntry{Tag: 254, Type: TIFFLong, Values: []uint32{1}},
			TIFFEntry{Tag: 256, Type: TIFFLong, Values: []uint32{uint32(bb.Dx())}},
			TIFFEntry{Tag: 257, Type: TIFFLong, Values: []uint32{uint32(bb.Dy())}},
			TIFFEntry{Tag: 258, Type: TIFFShort, Values: []uint32{8, 8, 8}},
			TIFFEntry{Tag: 259, Type: TIFFShort, Values: []uint32{1}},
			TIFFEntry{Tag: 262, Type: TIFFShort, Values: []uint32{2}},
			TIFFEntry{Tag: 273, Type: TIFFLong, Values: []uint32{off}},
			TIFFEntry{Tag: 277, Type: TIFFShort, Values: []uint32{3}},
			TIFFEntry{Tag: 279, Type: TIFFLong, Values: []uint32{uint32(len(pix))}},
		)
	}
	return b.Chain(b.WriteIFD(ifd0)).Bytes()
}

// EncodeRAF builds a Fuji RAF container whose header points at a JPEG preview.
func EncodeRAF(t *testing.T, preview image.Image, orientation int) []byte {
	t.Helper()

	var jpg []byte
	if orientation != 0 {
		jpg = JPEGWithOrientation(t, preview, orientation)
	} else {
		jpg = EncodeJPEG(t, preview)
	}

	const headerLen = 160
	out := make([]byte, headerLen, headerLen+len(jpg)+16)
	copy(out, "FUJIFILMCCD-RAW 0201FF383501")
	copy(out[28:], "FinePix Fixture")
	binary.BigEndian.PutUint32(out[84:], headerLen)
	binary.BigEndian.PutUint32(out[88:], uint32(len(jpg)))
	out = append(out, jpg...)
	return append(out, make([]byte, 16)...)
}

// EncodeEmbeddedJPEGs hides the JPEGs inside an opaque container, the way
// CR3 and X3F files carry their previews.
func EncodeEmbeddedJPEGs(t *testing.T, previews ...image.Image) []byte {
	t.Helper()

	out := []byte("\x00\x00\x00\x18ftypcrx \x00\x00\x00\x01crx isom")
	for i, p := range previews {
		out = append(out, bytes.Repeat([]byte{0xA5, byte(i)}, 37)...)
		out = append(out, EncodeJPEG(t, p)...)
	}
	return append(out, bytes.Repeat([]byte{0x5A}, 64)...)
}
