package rawthumb

import (
	"bytes"
	"encoding/binary"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
)

var exifHeader = []byte("Exif\x00\x00")

// isJPEG reports whether data starts with an SOI marker followed by another marker.
func isJPEG(data []byte) bool {
	return len(data) >= 4 && data[0] == 0xFF && data[1] == markerSOI && data[2] == 0xFF
}

// segments calls fn for every marker segment before the first SOS with the
// marker and its payload. It returns the offset of the SOS payload, or -1
// when the header is malformed or fn stops the walk by returning false.
func segments(data []byte, fn func(marker byte, payload []byte) bool) int {
	if !isJPEG(data) {
		return -1
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return -1
		}
		marker := data[pos+1]
		if marker == 0xFF {
			pos++ // fill byte
			continue
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
			pos += 2
			continue
		}
		n := int(binary.BigEndian.Uint16(data[pos+2:]))
		if n < 2 || pos+2+n > len(data) {
			return -1
		}
		if fn != nil && !fn(marker, data[pos+4:pos+2+n]) {
			return -1
		}
		pos += 2 + n
		if marker == markerSOS {
			return pos
		}
	}
	return -1
}

// jpegLength returns the length of the JPEG stream at the start of data,
// up to and including EOI, or 0 when no complete stream is found.
func jpegLength(data []byte) int {
	pos := segments(data, nil)
	if pos < 0 {
		return 0
	}
	for pos+1 < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		switch next := data[pos+1]; {
		case next == 0x00, next == 0xFF, next >= 0xD0 && next <= 0xD7:
			pos += 2
		case next == markerEOI:
			return pos + 2
		default:
			// Another scan (progressive) or table segment follows.
			if pos+4 > len(data) {
				return 0
			}
			n := int(binary.BigEndian.Uint16(data[pos+2:]))
			pos += 2 + n
		}
	}
	return 0
}

// HasExif reports whether the JPEG carries an APP1 Exif segment.
func HasExif(data []byte) bool { return exifPayload(data) != nil }

// exifPayload returns the TIFF structure inside the first APP1 Exif segment,
// or nil when there is none.
func exifPayload(data []byte) []byte {
	var payload []byte
	segments(data, func(marker byte, p []byte) bool {
		if marker == markerAPP1 && bytes.HasPrefix(p, exifHeader) {
			payload = p[len(exifHeader):]
			return false
		}
		return true
	})
	return payload
}
