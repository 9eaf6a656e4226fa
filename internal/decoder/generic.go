package decoder

import (
	"bytes"
	"context"
	"image"
	"io"

	"github.com/gen2brain/jpegn"
	_ "golang.org/x/image/bmp"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// genericDecoder handles opaque raster formats. The container is sniffed from
// its magic bytes, so a mislabelled file still decodes when its real format
// is registered. Alpha, if any, is discarded.
type genericDecoder struct{}

func (d *genericDecoder) Decode(_ context.Context, path string) (*raster.Raster, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, size))
	if err != nil {
		return nil, failure("read", err)
	}

	img, err := decodeSniffed(data)
	if err != nil {
		return nil, failure("decode", err)
	}
	return raster.FromImage(img)
}

// decodeSniffed routes JPEG streams to jpegn and everything else through
// the image format registry.
// Header dimensions are checked before any pixel buffer is allocated.
func decodeSniffed(data []byte) (image.Image, error) {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		cfg, err := jpegn.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// CMYK and other streams jpegn hands to image/jpeg.
			cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
		}
		if err != nil {
			return nil, err
		}
		if err := raster.CheckDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		return jpegn.Decode(bytes.NewReader(data), &jpegn.Options{ToRGBA: true})
	}
	if err := checkConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
