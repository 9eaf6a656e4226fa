package support

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/pixcanon/internal/testutil"
)

var imageFormats = map[string]imaging.Format{
	"PNG":  imaging.PNG,
	"JPEG": imaging.JPEG,
	"BMP":  imaging.BMP,
	"GIF":  imaging.GIF,
}

// RegisterImageSteps registers fixture and image verification steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an? (PNG|JPEG|BMP|GIF) image "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.anImageOfSize)
	sc.Step(`^a (\d+)-page TIFF stack "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aTIFFStack)
	sc.Step(`^a corrupt file "([^"]*)"$`, testCtx.aCorruptFile)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+) pixels$`, testCtx.theImageShouldBe)
}

func (testCtx *TestContext) writeFixture(name string, data []byte) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (testCtx *TestContext) anImageOfSize(format, name string, width, height int) error {
	f, ok := imageFormats[format]
	if !ok {
		return fmt.Errorf("unknown image format %s", format)
	}
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(out, testutil.Gradient(width, height), f); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return out.Close()
}

// aTIFFStack writes a grayscale stack whose page axis is the smallest
// dimension.
func (testCtx *TestContext) aTIFFStack(pages int, name string, width, height int) error {
	stack := make([]testutil.TIFFPage, pages)
	for p := range stack {
		data := make([]uint16, width*height)
		for i := range data {
			data[i] = uint16((i*7 + p*40) % 256)
		}
		stack[p] = testutil.TIFFPage{Width: width, Height: height, Data: data}
	}
	return testCtx.writeFixture(name, testutil.EncodeTIFF(binary.LittleEndian, stack...))
}

func (testCtx *TestContext) aCorruptFile(name string) error {
	return testCtx.writeFixture(name, []byte("this is not image data"))
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	return testCtx.writeFixture(name, []byte(strings.ReplaceAll(content, `\n`, "\n")))
}

func (testCtx *TestContext) theImageShouldBe(name string, width, height int) error {
	img, err := testutil.LoadImageFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	return expectSize(img, width, height)
}

func expectSize(img image.Image, width, height int) error {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("expected %dx%d image, got %dx%d", width, height, b.Dx(), b.Dy())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		return fmt.Errorf("expected an opaque image, alpha at origin is %d", a)
	}
	return nil
}
