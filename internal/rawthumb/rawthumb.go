// Package rawthumb extracts the camera-generated preview embedded in raw
// photo containers. It never demosaics sensor data.
package rawthumb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"sort"

	"github.com/gen2brain/jpegn"

	"github.com/MeKo-Tech/pixcanon/internal/tiffio"
)

// Format identifies how a thumbnail is stored.
type Format int

const (
	// FormatJPEG thumbnails carry encoded JPEG bytes in Data.
	FormatJPEG Format = iota + 1
	// FormatBitmap thumbnails carry decoded pixels in Image.
	FormatBitmap
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatBitmap:
		return "bitmap"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Thumbnail is an embedded preview.
type Thumbnail struct {
	Format Format
	Width  int
	Height int
	// Data is set for FormatJPEG.
	Data []byte
	// Image is set for FormatBitmap.
	Image image.Image
}

// ErrNoThumbnail is returned when a container holds no usable preview.
var ErrNoThumbnail = errors.New("rawthumb: no embedded preview")

const (
	rafMagic      = "FUJIFILMCCD-RAW"
	rafJPEGOffset = 84
	rafJPEGLength = 88
	mrwMagic      = "\x00MRM"
	mrwTIFFBlock  = "\x00TTW"

	photometricCFA       = 32803
	photometricLinearRaw = 34892

	// scanWindow is the read size of the SOI scan over opaque containers.
	scanWindow = 4 << 20
	// maxPreviewSize bounds the bytes read for one scanned JPEG stream.
	maxPreviewSize = 64 << 20
)

// Extract locates the best embedded preview in the raw container r. The
// largest JPEG wins; an uncompressed RGB bitmap is used only when the
// container has no JPEG preview.
func Extract(r io.ReaderAt, size int64) (*Thumbnail, error) {
	var head [16]byte
	n, _ := r.ReadAt(head[:], 0)
	if n < 8 {
		return nil, fmt.Errorf("rawthumb: %d byte file: %w", size, ErrNoThumbnail)
	}

	switch {
	case bytes.HasPrefix(head[:n], []byte(rafMagic)):
		return extractRAF(r, size)
	case bytes.HasPrefix(head[:n], []byte(mrwMagic)):
		if t, err := extractMRW(r, size); err == nil {
			return t, nil
		}
	default:
		if f, err := tiffio.Open(r, size); err == nil {
			if t, err := extractTIFF(f); err == nil {
				return t, nil
			}
		}
	}
	return scan(r, size)
}

func extractRAF(r io.ReaderAt, size int64) (*Thumbnail, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], rafJPEGOffset); err != nil {
		return nil, fmt.Errorf("rawthumb: RAF header: %w", ErrNoThumbnail)
	}
	off := int64(binary.BigEndian.Uint32(hdr[0:4]))
	length := int64(binary.BigEndian.Uint32(hdr[4:8]))
	if off <= 0 || length <= 0 || off+length > size {
		return nil, fmt.Errorf("rawthumb: RAF preview %d+%d outside file: %w", off, length, ErrNoThumbnail)
	}
	data := make([]byte, length)
	if _, err := r.ReadAt(data, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	t, ok := jpegCandidate(data)
	if !ok {
		return nil, fmt.Errorf("rawthumb: RAF preview is not a JPEG: %w", ErrNoThumbnail)
	}
	return t, nil
}

// extractMRW finds the TIFF block inside a Minolta MRW header.
func extractMRW(r io.ReaderAt, size int64) (*Thumbnail, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, err
	}
	end := min(8+int64(binary.BigEndian.Uint32(hdr[4:8])), size)
	for pos := int64(8); pos+8 <= end; {
		if _, err := r.ReadAt(hdr[:], pos); err != nil {
			return nil, err
		}
		length := int64(binary.BigEndian.Uint32(hdr[4:8]))
		if string(hdr[:4]) == mrwTIFFBlock {
			f, err := tiffio.Open(io.NewSectionReader(r, pos+8, length), length)
			if err != nil {
				return nil, err
			}
			return extractTIFF(f)
		}
		pos += 8 + length
	}
	return nil, ErrNoThumbnail
}

func extractTIFF(f *tiffio.File) (*Thumbnail, error) {
	var best, bitmap *Thumbnail
	consider := func(t *Thumbnail) {
		if best == nil || t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}

	f.Walk(func(d tiffio.IFD) {
		if d.Has(tiffio.TagJPEGInterchangeFormat) {
			off := int64(d.Uint(tiffio.TagJPEGInterchangeFormat, 0))
			length := int64(d.Uint(tiffio.TagJPEGInterchangeFormatLen, 0))
			if data, err := f.ReadSection(off, length); err == nil {
				if t, ok := jpegCandidate(data); ok {
					consider(t)
				}
			}
		}

		photometric := d.Uint(tiffio.TagPhotometricInterpretation, 0)
		if photometric == photometricCFA || photometric == photometricLinearRaw {
			return
		}
		offsets := d.Uints(tiffio.TagStripOffsets)
		counts := d.Uints(tiffio.TagStripByteCounts)
		switch d.Uint(tiffio.TagCompression, tiffio.CompressionNone) {
		case tiffio.CompressionOldJPEG, tiffio.CompressionJPEG:
			if len(offsets) == 1 && len(counts) == 1 {
				if data, err := f.ReadSection(int64(offsets[0]), int64(counts[0])); err == nil {
					if t, ok := jpegCandidate(data); ok {
						consider(t)
					}
				}
			}
		case tiffio.CompressionNone:
			if t, ok := bitmapCandidate(f, d); ok {
				if bitmap == nil || t.Width*t.Height > bitmap.Width*bitmap.Height {
					bitmap = t
				}
			}
		}
	})

	switch {
	case best != nil:
		return best, nil
	case bitmap != nil:
		return bitmap, nil
	default:
		return nil, ErrNoThumbnail
	}
}

// bitmapCandidate reads an uncompressed 8-bit RGB strip image.
func bitmapCandidate(f *tiffio.File, d tiffio.IFD) (*Thumbnail, bool) {
	if d.Uint(tiffio.TagPhotometricInterpretation, 0) != tiffio.PhotometricRGB ||
		d.Uint(tiffio.TagSamplesPerPixel, 1) != 3 {
		return nil, false
	}
	page, err := f.ReadPage(d)
	if err != nil || page.BitsPerSample != 8 || page.Planar {
		return nil, false
	}
	img := image.NewNRGBA(image.Rect(0, 0, page.Width, page.Height))
	for i := range page.Width * page.Height {
		img.Pix[4*i+0] = uint8(page.Data[3*i+0])
		img.Pix[4*i+1] = uint8(page.Data[3*i+1])
		img.Pix[4*i+2] = uint8(page.Data[3*i+2])
		img.Pix[4*i+3] = 0xFF
	}
	return &Thumbnail{Format: FormatBitmap, Width: page.Width, Height: page.Height, Image: img}, true
}

// jpegCandidate trims data to its JPEG stream and reads the dimensions.
func jpegCandidate(data []byte) (*Thumbnail, bool) {
	if !isJPEG(data) {
		return nil, false
	}
	if n := jpegLength(data); n > 0 {
		data = data[:n]
	}
	cfg, err := jpegn.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, false
	}
	return &Thumbnail{Format: FormatJPEG, Width: cfg.Width, Height: cfg.Height, Data: data}, true
}

// scan looks for embedded JPEG streams anywhere in an opaque container and
// keeps the one with the largest dimensions. The container is read in
// windows; only headers are decoded until a winner is picked.
func scan(r io.ReaderAt, size int64) (*Thumbnail, error) {
	if size <= 0 {
		return nil, fmt.Errorf("rawthumb: %d byte file not scanned: %w", size, ErrNoThumbnail)
	}

	type candidate struct {
		off  int64
		area int
	}
	var found []candidate
	soi := []byte{0xFF, markerSOI, 0xFF}
	buf := make([]byte, min(scanWindow, size))
	for base := int64(0); base < size; {
		n, err := r.ReadAt(buf[:min(int64(len(buf)), size-base)], base)
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			break
		}
		window := buf[:n]
		for pos := 0; ; {
			i := bytes.Index(window[pos:], soi)
			if i < 0 {
				break
			}
			start := base + int64(pos+i)
			pos += i + 2
			cfg, err := jpegn.DecodeConfig(io.NewSectionReader(r, start, size-start))
			if err == nil && cfg.Width > 0 && cfg.Height > 0 {
				found = append(found, candidate{off: start, area: cfg.Width * cfg.Height})
			}
		}
		if base+int64(n) >= size {
			break
		}
		// Overlap so a marker split across windows is still seen.
		base += int64(n - (len(soi) - 1))
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].area > found[j].area })
	for _, c := range found {
		data := make([]byte, min(size-c.off, maxPreviewSize))
		if _, err := r.ReadAt(data, c.off); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		n := jpegLength(data)
		if n == 0 {
			continue
		}
		if t, ok := jpegCandidate(bytes.Clone(data[:n])); ok {
			return t, nil
		}
	}
	return nil, ErrNoThumbnail
}
