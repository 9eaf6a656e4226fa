package decoder

import (
	"context"
	"slices"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// Decoder turns one file into a canonical raster.
type Decoder interface {
	Decode(ctx context.Context, path string) (*raster.Raster, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (*raster.Raster, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, path string) (*raster.Raster, error) {
	return f(ctx, path)
}

// Registry maps recognized extensions to their decoder. It is immutable once
// built.
type Registry struct {
	decoders map[Class]Decoder
}

// NewRegistry binds decoders to classes and verifies that every recognized
// extension resolves. The returned error is a *RegistryError.
func NewRegistry(bindings map[Class]Decoder) (*Registry, error) {
	r := &Registry{decoders: make(map[Class]Decoder, len(bindings))}
	for c, d := range bindings {
		if d != nil {
			r.decoders[c] = d
		}
	}

	var missing []string
	for ext, c := range classByExtension {
		if _, ok := r.decoders[c]; !ok {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &RegistryError{Missing: missing}
	}
	return r, nil
}

// Lookup resolves the decoder for ext.
func (r *Registry) Lookup(ext string) (Decoder, Class, bool) {
	c, ok := ClassOf(ext)
	if !ok {
		return nil, 0, false
	}
	d, ok := r.decoders[c]
	return d, c, ok
}
