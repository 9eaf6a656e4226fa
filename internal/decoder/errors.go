package decoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// ErrUnsupportedExtension is returned for paths whose extension no decoder
// is registered for. It is a Decode Failure.
var ErrUnsupportedExtension = fmt.Errorf("unsupported extension: %w", raster.ErrDecodeFailure)

// DecodeError describes a failed decode of one file.
type DecodeError struct {
	Path  string
	Class Class
	Op    string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Class == 0 {
		return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Op, e.Err)
	}
	return fmt.Sprintf("decode %s (%s): %s: %v", e.Path, e.Class, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes every DecodeError match raster.ErrDecodeFailure.
func (e *DecodeError) Is(target error) bool { return target == raster.ErrDecodeFailure }

// RegistryError reports recognized extensions that resolve to no decoder.
type RegistryError struct {
	Missing []string
}

func (e *RegistryError) Error() string {
	return "decoder registry incomplete: no decoder for " + strings.Join(e.Missing, ", ")
}

// failure wraps err so that it matches raster.ErrDecodeFailure.
func failure(op string, err error) error {
	if errors.Is(err, raster.ErrDecodeFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &raster.ImageProcessingError{Operation: op, Err: err}
}
