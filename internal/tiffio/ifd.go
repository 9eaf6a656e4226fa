// Package tiffio reads TIFF image file directories and raw sample arrays.
//
// It is narrower than golang.org/x/image/tiff: it exposes the
// directory structure (so camera raw containers can be walked for previews)
// and returns samples at their native bit depth and axis layout instead of a
// colour-converted image.Image.
package tiffio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/MeKo-Tech/pixcanon/internal/mempool"
)

// A FormatError reports that the input is not a valid TIFF container.
type FormatError string

func (e FormatError) Error() string { return "tiffio: invalid format: " + string(e) }

// An UnsupportedError reports that the input uses a valid but unimplemented
// TIFF feature.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "tiffio: unsupported feature: " + string(e) }

// Entry is one directory entry with its value bytes resolved.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	value []byte
	order binary.ByteOrder
}

// Uints decodes integer-typed values.
func (e Entry) Uints() []uint32 {
	n := int(e.Count)
	out := make([]uint32, 0, n)
	switch e.Type {
	case dtByte, dtUndefined, dtSByte:
		for i := 0; i < n && i < len(e.value); i++ {
			out = append(out, uint32(e.value[i]))
		}
	case dtShort, dtSShort:
		for i := 0; i < n && 2*i+2 <= len(e.value); i++ {
			out = append(out, uint32(e.order.Uint16(e.value[2*i:])))
		}
	case dtLong, dtSLong, dtIFD:
		for i := 0; i < n && 4*i+4 <= len(e.value); i++ {
			out = append(out, e.order.Uint32(e.value[4*i:]))
		}
	}
	return out
}

// Bytes returns the raw value bytes.
func (e Entry) Bytes() []byte { return e.value }

// IFD is a decoded image file directory.
type IFD struct {
	Offset  int64
	Entries map[uint16]Entry
}

// Has reports whether the directory contains tag.
func (d IFD) Has(tag uint16) bool {
	_, ok := d.Entries[tag]
	return ok
}

// Uint returns the first integer value of tag, or def when absent.
func (d IFD) Uint(tag uint16, def uint32) uint32 {
	e, ok := d.Entries[tag]
	if !ok {
		return def
	}
	v := e.Uints()
	if len(v) == 0 {
		return def
	}
	return v[0]
}

// Uints returns all integer values of tag.
func (d IFD) Uints(tag uint16) []uint32 {
	e, ok := d.Entries[tag]
	if !ok {
		return nil
	}
	return e.Uints()
}

// File is an opened TIFF container.
type File struct {
	r     io.ReaderAt
	size  int64
	Order binary.ByteOrder
	Magic uint16
	// Pages is the main IFD chain starting at the header offset.
	Pages []IFD
}

// Open parses the header and the main IFD chain. Any magic number a known
// camera variant uses is accepted; BigTIFF is not.
func Open(r io.ReaderAt, size int64) (*File, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, FormatError("short header")
	}

	f := &File{r: r, size: size}
	switch string(hdr[:2]) {
	case leHeader:
		f.Order = binary.LittleEndian
	case beHeader:
		f.Order = binary.BigEndian
	default:
		return nil, FormatError("malformed header")
	}

	f.Magic = f.Order.Uint16(hdr[2:4])
	switch f.Magic {
	case MagicTIFF, MagicOlympusRO, MagicOlympusRS, MagicPanasonic:
	case MagicBigTIFF:
		return nil, UnsupportedError("BigTIFF")
	default:
		return nil, FormatError(fmt.Sprintf("unknown magic %#x", f.Magic))
	}

	seen := make(map[int64]bool)
	next := int64(f.Order.Uint32(hdr[4:8]))
	for next != 0 && len(f.Pages) < maxPages {
		if seen[next] {
			return nil, FormatError("IFD loop")
		}
		seen[next] = true

		ifd, following, err := f.ReadIFD(next)
		if err != nil {
			if len(f.Pages) > 0 {
				// Trailing garbage after at least one good page is tolerated.
				break
			}
			return nil, err
		}
		f.Pages = append(f.Pages, ifd)
		next = following
	}
	if len(f.Pages) == 0 {
		return nil, FormatError("no image file directory")
	}
	return f, nil
}

// ReadIFD decodes the directory at offset and returns the offset of the next one.
func (f *File) ReadIFD(offset int64) (IFD, int64, error) {
	if offset < 8 || offset+2 > f.size {
		return IFD{}, 0, FormatError(fmt.Sprintf("IFD offset %d out of range", offset))
	}
	var countBuf [2]byte
	if _, err := f.r.ReadAt(countBuf[:], offset); err != nil {
		return IFD{}, 0, FormatError("short IFD")
	}
	n := int(f.Order.Uint16(countBuf[:]))
	if n == 0 || n > maxIFDEntries {
		return IFD{}, 0, FormatError(fmt.Sprintf("IFD with %d entries", n))
	}

	buf := make([]byte, n*ifdEntryLen+4)
	if _, err := f.r.ReadAt(buf, offset+2); err != nil && err != io.EOF {
		return IFD{}, 0, FormatError("short IFD")
	}

	ifd := IFD{Offset: offset, Entries: make(map[uint16]Entry, n)}
	for i := range n {
		p := buf[i*ifdEntryLen : (i+1)*ifdEntryLen]
		e := Entry{
			Tag:   f.Order.Uint16(p[0:2]),
			Type:  f.Order.Uint16(p[2:4]),
			Count: f.Order.Uint32(p[4:8]),
			order: f.Order,
		}
		if int(e.Type) >= len(typeLengths) || typeLengths[e.Type] == 0 {
			continue
		}
		length := uint64(typeLengths[e.Type]) * uint64(e.Count)
		if length > maxEntryPayload {
			continue
		}
		if length <= 4 {
			e.value = append([]byte(nil), p[8:8+length]...)
		} else {
			e.value = make([]byte, length)
			valueOffset := int64(f.Order.Uint32(p[8:12]))
			if _, err := f.r.ReadAt(e.value, valueOffset); err != nil {
				continue
			}
		}
		ifd.Entries[e.Tag] = e
	}

	next := int64(f.Order.Uint32(buf[n*ifdEntryLen:]))
	return ifd, next, nil
}

// Children returns the directories referenced from ifd through SubIFDs and the
// EXIF pointer. Unreadable children are skipped.
func (f *File) Children(ifd IFD) []IFD {
	var out []IFD
	offsets := append(ifd.Uints(TagSubIFDs), ifd.Uints(TagExifIFD)...)
	for _, off := range offsets {
		child, _, err := f.ReadIFD(int64(off))
		if err != nil {
			continue
		}
		out = append(out, child)
	}
	return out
}

// Walk visits every directory reachable from the main chain, depth first,
// visiting each offset once.
func (f *File) Walk(fn func(IFD)) {
	seen := make(map[int64]bool)
	var visit func(IFD, int)
	visit = func(d IFD, depth int) {
		if seen[d.Offset] || depth > 4 {
			return
		}
		seen[d.Offset] = true
		fn(d)
		for _, c := range f.Children(d) {
			visit(c, depth+1)
		}
	}
	for _, p := range f.Pages {
		visit(p, 0)
	}
}

// ReadSection returns length bytes starting at offset.
func (f *File) ReadSection(offset, length int64) ([]byte, error) {
	return f.readSection(offset, length, func(n int) []byte { return make([]byte, n) })
}

// readSectionPooled is ReadSection with a buffer from mempool.
func (f *File) readSectionPooled(offset, length int64) ([]byte, error) {
	return f.readSection(offset, length, mempool.GetBytes)
}

func (f *File) readSection(offset, length int64, alloc func(int) []byte) ([]byte, error) {
	if offset < 0 || length <= 0 || offset+length > f.size {
		return nil, FormatError(fmt.Sprintf("section %d+%d outside file of %d bytes", offset, length, f.size))
	}
	buf := alloc(int(length))
	if _, err := f.r.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}
