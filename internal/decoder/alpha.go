package decoder

import (
	"bufio"
	"context"
	"image"
	_ "image/gif" // first frame of animated GIFs
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// alphaDecoder handles formats that commonly carry transparency. Alpha is
// composited over white.
type alphaDecoder struct{}

func (d *alphaDecoder) Decode(_ context.Context, path string) (*raster.Raster, error) {
	f, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := checkConfig(bufio.NewReader(io.NewSectionReader(f, 0, size))); err != nil {
		return nil, failure("decode", err)
	}
	img, _, err := image.Decode(bufio.NewReader(io.NewSectionReader(f, 0, size)))
	if err != nil {
		return nil, failure("decode", err)
	}
	return raster.Canonicalize(img)
}
