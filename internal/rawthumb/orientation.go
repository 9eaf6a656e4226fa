package rawthumb

import (
	"bytes"
	"fmt"

	"github.com/MeKo-Tech/pixcanon/internal/tiffio"
)

// Orientation returns the EXIF orientation tag of a JPEG thumbnail. ok is
// false when the JPEG has no Exif segment at all; err is set when the segment
// exists but cannot be parsed. A segment without the tag reads as 1.
func Orientation(data []byte) (orientation int, ok bool, err error) {
	payload := exifPayload(data)
	if payload == nil {
		return 0, false, nil
	}
	f, err := tiffio.Open(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return 0, true, fmt.Errorf("rawthumb: read exif: %w", err)
	}
	return int(f.Pages[0].Uint(tiffio.TagOrientation, 1)), true, nil
}

// Rotation maps an orientation tag to the counter-clockwise rotation, in
// degrees, that makes the thumbnail upright. Mirrored and unknown values map
// to zero.
func Rotation(orientation int) int {
	switch orientation {
	case 3:
		return 180
	case 6:
		return 270
	case 8:
		return 90
	default:
		return 0
	}
}
