package testutil

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// TIFF field types used by the fixture writers.
const (
	TIFFByte      = 1
	TIFFASCII     = 2
	TIFFShort     = 3
	TIFFLong      = 4
	TIFFUndefined = 7
)

// TIFFEntry is one directory entry. Integer types take Values, byte types take Raw.
type TIFFEntry struct {
	Tag    uint16
	Type   uint16
	Values []uint32
	Raw    []byte
}

// TIFFBuilder lays out a TIFF container: blobs and directories are appended in
// call order and linked together afterwards with Chain.
type TIFFBuilder struct {
	order   binary.ByteOrder
	buf     bytes.Buffer
	entries map[uint32]int
}

// NewTIFFBuilder starts a container with the standard magic number.
func NewTIFFBuilder(order binary.ByteOrder) *TIFFBuilder {
	b := &TIFFBuilder{order: order, entries: make(map[uint32]int)}
	hdr := make([]byte, 8)
	if order == binary.BigEndian {
		copy(hdr, "MM")
	} else {
		copy(hdr, "II")
	}
	order.PutUint16(hdr[2:], 42)
	b.buf.Write(hdr)
	return b
}

// SetMagic overrides the header magic number.
func (b *TIFFBuilder) SetMagic(magic uint16) *TIFFBuilder {
	b.order.PutUint16(b.buf.Bytes()[2:4], magic)
	return b
}

// AddBlob appends word-aligned data and returns its offset.
func (b *TIFFBuilder) AddBlob(data []byte) uint32 {
	if b.buf.Len()%2 == 1 {
		b.buf.WriteByte(0)
	}
	off := uint32(b.buf.Len())
	b.buf.Write(data)
	return off
}

// WriteIFD appends a directory (values over four bytes are stored out of line)
// and returns its offset. Its next pointer is zero until Chain links it.
func (b *TIFFBuilder) WriteIFD(entries []TIFFEntry) uint32 {
	sorted := append([]TIFFEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })

	type encoded struct {
		e     TIFFEntry
		count uint32
		value []byte
	}
	enc := make([]encoded, len(sorted))
	for i, e := range sorted {
		var payload []byte
		count := uint32(len(e.Raw))
		switch e.Type {
		case TIFFShort:
			payload = make([]byte, 2*len(e.Values))
			for j, v := range e.Values {
				b.order.PutUint16(payload[2*j:], uint16(v))
			}
			count = uint32(len(e.Values))
		case TIFFLong:
			payload = make([]byte, 4*len(e.Values))
			for j, v := range e.Values {
				b.order.PutUint32(payload[4*j:], v)
			}
			count = uint32(len(e.Values))
		default:
			payload = e.Raw
		}

		field := make([]byte, 4)
		if len(payload) <= 4 {
			copy(field, payload)
		} else {
			b.order.PutUint32(field, b.AddBlob(payload))
		}
		enc[i] = encoded{e: e, count: count, value: field}
	}

	if b.buf.Len()%2 == 1 {
		b.buf.WriteByte(0)
	}
	off := uint32(b.buf.Len())
	tmp := make([]byte, 2)
	b.order.PutUint16(tmp, uint16(len(enc)))
	b.buf.Write(tmp)
	for _, x := range enc {
		entry := make([]byte, 12)
		b.order.PutUint16(entry[0:], x.e.Tag)
		b.order.PutUint16(entry[2:], x.e.Type)
		b.order.PutUint32(entry[4:], x.count)
		copy(entry[8:], x.value)
		b.buf.Write(entry)
	}
	b.buf.Write(make([]byte, 4))
	b.entries[off] = len(enc)
	return off
}

// Chain makes the given directories the main IFD chain, in order.
func (b *TIFFBuilder) Chain(offsets ...uint32) *TIFFBuilder {
	data := b.buf.Bytes()
	if len(offsets) == 0 {
		return b
	}
	b.order.PutUint32(data[4:8], offsets[0])
	for i := 0; i+1 < len(offsets); i++ {
		n := b.entries[offsets[i]]
		b.order.PutUint32(data[offsets[i]+2+uint32(12*n):], offsets[i+1])
	}
	return b
}

// Bytes returns the container.
func (b *TIFFBuilder) Bytes() []byte { return append([]byte(nil), b.buf.Bytes()...) }

// TIFF compression values understood by TIFFPage.
const (
	TIFFCompressionNone     = 1
	TIFFCompressionDeflate  = 8
	TIFFCompressionPackBits = 32773
	TIFFCompressionZSTD     = 50000
)

// TIFFPage describes one synthetic page. Data holds Width*Height*Samples
// values laid out [y][x][s], or [s][y][x] when Planar is set.
type TIFFPage struct {
	Width        int
	Height       int
	Samples      int
	Bits         int
	Planar       bool
	Compression  int
	Predictor    bool
	RowsPerStrip int
	Reduced      bool
	Photometric  int
	Data         []uint16
}

// EncodeTIFF builds a multi-page TIFF from the pages.
func EncodeTIFF(order binary.ByteOrder, pages ...TIFFPage) []byte {
	b := NewTIFFBuilder(order)
	offsets := make([]uint32, 0, len(pages))
	for _, p := range pages {
		offsets = append(offsets, b.writePage(p))
	}
	return b.Chain(offsets...).Bytes()
}

func (b *TIFFBuilder) writePage(p TIFFPage) uint32 {
	if p.Samples == 0 {
		p.Samples = 1
	}
	if p.Bits == 0 {
		p.Bits = 8
	}
	if p.Compression == 0 {
		p.Compression = TIFFCompressionNone
	}
	rps := p.RowsPerStrip
	if rps <= 0 || rps > p.Height {
		rps = p.Height
	}

	planes, rowSamples := 1, p.Width*p.Samples
	if p.Planar {
		planes, rowSamples = p.Samples, p.Width
	}
	stripsPerPlane := (p.Height + rps - 1) / rps

	var offsets, counts []uint32
	for plane := range planes {
		for s := range stripsPerPlane {
			first := s * rps
			rows := min(rps, p.Height-first)
			start := plane*p.Width*p.Height + first*rowSamples
			if !p.Planar {
				start = first * rowSamples
			}
			samples := append([]uint16(nil), p.Data[start:start+rows*rowSamples]...)
			if p.Predictor {
				stride := p.Samples
				if p.Planar {
					stride = 1
				}
				applyHorizontalPredictor(samples, rowSamples, stride, p.Bits)
			}
			raw := packSamples(b.order, samples, p.Bits)
			data := compressStrip(p.Compression, raw)
			offsets = append(offsets, b.AddBlob(data))
			counts = append(counts, uint32(len(data)))
		}
	}

	bits := make([]uint32, p.Samples)
	for i := range bits {
		bits[i] = uint32(p.Bits)
	}
	photometric := p.Photometric
	if photometric == 0 {
		photometric = 1
		if p.Samples >= 3 {
			photometric = 2
		}
	}
	planar := uint32(1)
	if p.Planar {
		planar = 2
	}
	predictor := uint32(1)
	if p.Predictor {
		predictor = 2
	}
	subfile := uint32(0)
	if p.Reduced {
		subfile = 1
	}

	entries := []TIFFEntry{
		{Tag: 254, Type: TIFFLong, Values: []uint32{subfile}},
		{Tag: 256, Type: TIFFLong, Values: []uint32{uint32(p.Width)}},
		{Tag: 257, Type: TIFFLong, Values: []uint32{uint32(p.Height)}},
		{Tag: 258, Type: TIFFShort, Values: bits},
		{Tag: 259, Type: TIFFShort, Values: []uint32{uint32(p.Compression)}},
		{Tag: 262, Type: TIFFShort, Values: []uint32{uint32(photometric)}},
		{Tag: 273, Type: TIFFLong, Values: offsets},
		{Tag: 277, Type: TIFFShort, Values: []uint32{uint32(p.Samples)}},
		{Tag: 278, Type: TIFFLong, Values: []uint32{uint32(rps)}},
		{Tag: 279, Type: TIFFLong, Values: counts},
		{Tag: 284, Type: TIFFShort, Values: []uint32{planar}},
		{Tag: 317, Type: TIFFShort, Values: []uint32{predictor}},
	}
	if p.Samples == 4 || p.Samples == 2 {
		entries = append(entries, TIFFEntry{Tag: 338, Type: TIFFShort, Values: []uint32{2}})
	}
	return b.WriteIFD(entries)
}

func applyHorizontalPredictor(data []uint16, rowSamples, stride, bits int) {
	mask := uint16(0xffff)
	if bits == 8 {
		mask = 0xff
	}
	for row := 0; row+rowSamples <= len(data); row += rowSamples {
		line := data[row : row+rowSamples]
		for i := len(line) - 1; i >= stride; i-- {
			line[i] = (line[i] - line[i-stride]) & mask
		}
	}
}

func packSamples(order binary.ByteOrder, samples []uint16, bits int) []byte {
	if bits == 8 {
		out := make([]byte, len(samples))
		for i, v := range samples {
			out[i] = uint8(v)
		}
		return out
	}
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		order.PutUint16(out[2*i:], v)
	}
	return out
}

func compressStrip(compression int, raw []byte) []byte {
	switch compression {
	case TIFFCompressionDeflate:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		_, _ = w.Write(raw)
		_ = w.Close()
		return buf.Bytes()
	case TIFFCompressionPackBits:
		var out []byte
		for i := 0; i < len(raw); i += 128 {
			end := min(i+128, len(raw))
			out = append(out, byte(end-i-1))
			out = append(out, raw[i:end]...)
		}
		return out
	case TIFFCompressionZSTD:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err)
		}
		defer func() { _ = enc.Close() }()
		return enc.EncodeAll(raw, nil)
	default:
		return raw
	}
}

// TIFFHeaderOnly builds an uncompressed single-page TIFF whose directory
// declares width x height x samples but whose only strip holds stripLen bytes.
func TIFFHeaderOnly(order binary.ByteOrder, width, height, samples, bits, stripLen int) []byte {
	b := NewTIFFBuilder(order)
	strip := b.AddBlob(make([]byte, stripLen))

	bps := make([]uint32, samples)
	for i := range bps {
		bps[i] = uint32(bits)
	}
	photometric := uint32(1)
	if samples >= 3 {
		photometric = 2
	}
	ifd := b.WriteIFD([]TIFFEntry{
		{Tag: 256, Type: TIFFLong, Values: []uint32{uint32(width)}},
		{Tag: 257, Type: TIFFLong, Values: []uint32{uint32(height)}},
		{Tag: 258, Type: TIFFShort, Values: bps},
		{Tag: 259, Type: TIFFShort, Values: []uint32{TIFFCompressionNone}},
		{Tag: 262, Type: TIFFShort, Values: []uint32{photometric}},
		{Tag: 273, Type: TIFFLong, Values: []uint32{strip}},
		{Tag: 277, Type: TIFFShort, Values: []uint32{uint32(samples)}},
		{Tag: 278, Type: TIFFLong, Values: []uint32{uint32(height)}},
		{Tag: 279, Type: TIFFLong, Values: []uint32{uint32(stripLen)}},
	})
	return b.Chain(ifd).Bytes()
}
