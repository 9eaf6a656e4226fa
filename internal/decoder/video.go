package decoder

import (
	"context"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/video"
)

// videoDecoder grabs one still frame.
type videoDecoder struct {
	grabber video.FrameGrabber
}

func (d *videoDecoder) Decode(ctx context.Context, path string) (*raster.Raster, error) {
	f, _, err := openFile(path)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	img, err := d.grabber.Grab(ctx, path)
	if err != nil {
		return nil, failure("grab frame", err)
	}
	return raster.FromImage(img)
}
