package tiffio

import (
	"fmt"

	"github.com/MeKo-Tech/pixcanon/internal/mempool"
)

// MaxSamples bounds the samples one page, or one stacked array, may hold.
const MaxSamples = 1 << 28

// Page holds the samples of one directory at their native depth. Chunky
// pages store samples as [y][x][s]; planar pages as [s][y][x].
type Page struct {
	Width           int
	Height          int
	SamplesPerPixel int
	BitsPerSample   int
	Planar          bool
	Photometric     uint32
	Data            []uint16
}

// Reduced reports whether the directory is flagged as a reduced-resolution
// copy of another page.
func Reduced(ifd IFD) bool {
	return ifd.Uint(TagNewSubfileType, 0)&1 != 0
}

// ReadPage decodes the strips of ifd. Only unsigned 8 and 16 bit samples in
// strip layout are handled.
func (f *File) ReadPage(ifd IFD) (*Page, error) {
	p := &Page{
		Width:           int(ifd.Uint(TagImageWidth, 0)),
		Height:          int(ifd.Uint(TagImageLength, 0)),
		SamplesPerPixel: int(ifd.Uint(TagSamplesPerPixel, 1)),
		Photometric:     ifd.Uint(TagPhotometricInterpretation, PhotometricBlackIsZero),
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, FormatError("missing image dimensions")
	}
	if p.SamplesPerPixel <= 0 || p.SamplesPerPixel > 64 {
		return nil, FormatError(fmt.Sprintf("%d samples per pixel", p.SamplesPerPixel))
	}
	if ifd.Has(TagTileWidth) || ifd.Has(TagTileOffsets) {
		return nil, UnsupportedError("tiled layout")
	}
	if p.Photometric == PhotometricPaletted || p.Photometric == PhotometricYCbCr {
		return nil, UnsupportedError(fmt.Sprintf("photometric interpretation %d", p.Photometric))
	}
	for _, sf := range ifd.Uints(TagSampleFormat) {
		if sf != sampleFormatUint {
			return nil, UnsupportedError(fmt.Sprintf("sample format %d", sf))
		}
	}

	bits := ifd.Uints(TagBitsPerSample)
	if len(bits) == 0 {
		bits = []uint32{1}
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return nil, UnsupportedError("mixed bits per sample")
		}
	}
	p.BitsPerSample = int(bits[0])
	if p.BitsPerSample != 8 && p.BitsPerSample != 16 {
		return nil, UnsupportedError(fmt.Sprintf("%d bits per sample", p.BitsPerSample))
	}

	switch ifd.Uint(TagPlanarConfiguration, planarChunky) {
	case planarChunky:
	case planarPlanar:
		p.Planar = p.SamplesPerPixel > 1
	default:
		return nil, FormatError("bad planar configuration")
	}

	compression := ifd.Uint(TagCompression, CompressionNone)
	predictor := ifd.Uint(TagPredictor, predictorNone)
	if predictor != predictorNone && predictor != predictorHorizontal {
		return nil, UnsupportedError(fmt.Sprintf("predictor %d", predictor))
	}

	offsets := ifd.Uints(TagStripOffsets)
	counts := ifd.Uints(TagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, FormatError("inconsistent strip tables")
	}

	rowsPerStrip := int(ifd.Uint(TagRowsPerStrip, uint32(p.Height)))
	if rowsPerStrip <= 0 || rowsPerStrip > p.Height {
		rowsPerStrip = p.Height
	}
	stripsPerPlane := (p.Height + rowsPerStrip - 1) / rowsPerStrip
	planes := 1
	rowSamples := p.Width * p.SamplesPerPixel
	if p.Planar {
		planes = p.SamplesPerPixel
		rowSamples = p.Width
	}
	if len(offsets) < stripsPerPlane*planes {
		return nil, FormatError(fmt.Sprintf("%d strips, want %d", len(offsets), stripsPerPlane*planes))
	}

	if n := int64(p.Width) * int64(p.Height) * int64(p.SamplesPerPixel); n > MaxSamples {
		return nil, UnsupportedError(fmt.Sprintf("%dx%dx%d page exceeds %d samples",
			p.Width, p.Height, p.SamplesPerPixel, MaxSamples))
	}

	bytesPerSample := p.BitsPerSample / 8
	stripBytes := func(s int) int {
		rows := min(rowsPerStrip, p.Height-s*rowsPerStrip)
		return rows * rowSamples * bytesPerSample
	}

	// Strip tables are checked against the file before the sample buffer is
	// sized from the header.
	for plane := range planes {
		for s := range stripsPerPlane {
			idx := plane*stripsPerPlane + s
			off, n := int64(offsets[idx]), int64(counts[idx])
			if n <= 0 || off+n > f.size {
				return nil, FormatError(fmt.Sprintf("strip %d at %d+%d outside file of %d bytes", idx, off, n, f.size))
			}
			if compression == CompressionNone && n < int64(stripBytes(s)) {
				return nil, FormatError(fmt.Sprintf("strip %d holds %d bytes, want %d", idx, n, stripBytes(s)))
			}
		}
	}

	p.Data = make([]uint16, p.Width*p.Height*p.SamplesPerPixel)
	planeLen := p.Width * p.Height

	for plane := range planes {
		for s := range stripsPerPlane {
			idx := plane*stripsPerPlane + s
			firstRow := s * rowsPerStrip
			rows := min(rowsPerStrip, p.Height-firstRow)
			want := stripBytes(s)

			raw, err := f.readSectionPooled(int64(offsets[idx]), int64(counts[idx]))
			if err != nil {
				return nil, err
			}
			buf, err := decompress(compression, raw, want)
			if err != nil {
				mempool.PutBytes(raw)
				return nil, err
			}
			release := func() {
				if compression != CompressionNone {
					mempool.PutBytes(buf)
				}
				mempool.PutBytes(raw)
			}
			if len(buf) < want {
				release()
				return nil, FormatError(fmt.Sprintf("strip %d holds %d bytes, want %d", idx, len(buf), want))
			}

			base := firstRow * rowSamples
			if p.Planar {
				base += plane * planeLen
			}
			dst := p.Data[base : base+rows*rowSamples]
			f.unpack(dst, buf, bytesPerSample)

			if predictor == predictorHorizontal {
				stride := p.SamplesPerPixel
				if p.Planar {
					stride = 1
				}
				undoHorizontal(dst, rowSamples, stride, p.BitsPerSample)
			}
			release()
		}
	}
	return p, nil
}

func (f *File) unpack(dst []uint16, buf []byte, bytesPerSample int) {
	if bytesPerSample == 1 {
		for i := range dst {
			dst[i] = uint16(buf[i])
		}
		return
	}
	for i := range dst {
		dst[i] = f.Order.Uint16(buf[2*i:])
	}
}

// undoHorizontal reverses horizontal differencing in place.
func undoHorizontal(data []uint16, rowSamples, stride, bits int) {
	mask := uint16(0xffff)
	if bits == 8 {
		mask = 0xff
	}
	for row := 0; row+rowSamples <= len(data); row += rowSamples {
		line := data[row : row+rowSamples]
		for i := stride; i < len(line); i++ {
			line[i] = (line[i] + line[i-stride]) & mask
		}
	}
}
