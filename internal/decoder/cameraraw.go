package decoder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/rawthumb"
)

// cameraRawDecoder returns the camera-generated preview of a raw file,
// rotated upright according to its EXIF orientation.
type cameraRawDecoder struct {
	logger *slog.Logger
}

func (d *cameraRawDecoder) Decode(_ context.Context, path string) (*raster.Raster, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	thumb, err := rawthumb.Extract(f, size)
	if err != nil {
		return nil, failure("extract preview", err)
	}

	switch thumb.Format {
	case rawthumb.FormatBitmap:
		return raster.FromImage(thumb.Image)
	case rawthumb.FormatJPEG:
		img, err := decodeSniffed(thumb.Data)
		if err != nil {
			return nil, failure("decode preview", err)
		}
		r, err := raster.FromImage(img)
		if err != nil {
			return nil, err
		}
		return raster.Rotate(r, d.rotation(path, thumb.Data))
	default:
		return nil, failure("extract preview", fmt.Errorf("unknown thumbnail format %s", thumb.Format))
	}
}

// rotation reads the preview's orientation tag. Unreadable EXIF is logged and
// treated as upright.
func (d *cameraRawDecoder) rotation(path string, jpeg []byte) int {
	orientation, ok, err := rawthumb.Orientation(jpeg)
	if err != nil {
		d.logger.Warn("Failed to read preview orientation", "path", path, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	return rawthumb.Rotation(orientation)
}
