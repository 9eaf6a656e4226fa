package decoder

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Class is a family of container formats sharing one decoding strategy.
type Class int

const (
	ClassLayeredDocument Class = iota + 1
	ClassMultiDimensional
	ClassAlphaRaster
	ClassGenericRaster
	ClassCameraRaw
	ClassVideo
)

// Classes lists every class in a stable order.
var Classes = []Class{
	ClassLayeredDocument,
	ClassMultiDimensional,
	ClassAlphaRaster,
	ClassGenericRaster,
	ClassCameraRaw,
	ClassVideo,
}

func (c Class) String() string {
	switch c {
	case ClassLayeredDocument:
		return "layered-document"
	case ClassMultiDimensional:
		return "multi-dimensional-raster"
	case ClassAlphaRaster:
		return "alpha-raster"
	case ClassGenericRaster:
		return "generic-raster"
	case ClassCameraRaw:
		return "camera-raw"
	case ClassVideo:
		return "video"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// MarshalText renders the class name in JSON and YAML output.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

var extensionsByClass = map[Class][]string{
	ClassLayeredDocument:  {".psd", ".psb"},
	ClassMultiDimensional: {".tif", ".tiff"},
	ClassAlphaRaster:      {".png", ".webp", ".gif"},
	ClassGenericRaster:    {".jpg", ".jpeg", ".jpe", ".jfif", ".bmp", ".dib"},
	ClassCameraRaw: {
		".arw", ".cr2", ".cr3", ".crw", ".dng", ".erf", ".kdc", ".mrw", ".nef",
		".nrw", ".orf", ".pef", ".raf", ".rw2", ".sr2", ".srf", ".srw", ".x3f",
	},
	ClassVideo: {
		".mp4", ".m4v", ".mov", ".avi", ".mkv", ".webm", ".wmv", ".flv",
		".mpg", ".mpeg", ".3gp",
	},
}

var classByExtension = func() map[string]Class {
	m := make(map[string]Class)
	for class, exts := range extensionsByClass {
		for _, ext := range exts {
			if prev, dup := m[ext]; dup {
				panic(fmt.Sprintf("decoder: extension %s bound to both %s and %s", ext, prev, class))
			}
			m[ext] = class
		}
	}
	return m
}()

var folder = cases.Fold()

// NormalizeExt lowercases ext (Unicode case folding) and ensures a leading dot.
func NormalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return folder.String(ext)
}

// Ext returns the normalized extension of path.
func Ext(path string) string { return NormalizeExt(filepath.Ext(path)) }

// ClassOf returns the class bound to ext. ext may be given with or without
// the leading dot and in any case.
func ClassOf(ext string) (Class, bool) {
	c, ok := classByExtension[NormalizeExt(ext)]
	return c, ok
}

// SupportedExtensions returns every recognized extension, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(classByExtension))
	for ext := range classByExtension {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// ExtensionsByClass returns a copy of the recognized extension table.
func ExtensionsByClass() map[Class][]string {
	out := make(map[Class][]string, len(extensionsByClass))
	for c, exts := range extensionsByClass {
		out[c] = slices.Clone(exts)
	}
	return out
}
