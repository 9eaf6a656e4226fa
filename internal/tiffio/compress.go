package tiffio

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/tiff/lzw"

	"github.com/MeKo-Tech/pixcanon/internal/mempool"
)

var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
})

// decompress expands one strip. want is the expected decoded size; readers
// stop there so trailing padding in the strip is ignored. Unless compression
// is none, the result comes from mempool and the caller returns it.
func decompress(compression uint32, src []byte, want int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return src, nil
	case CompressionLZW:
		rc := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer func() { _ = rc.Close() }()
		return readUpTo(rc, want)
	case CompressionDeflate, CompressionDeflateOld:
		rc, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, FormatError("deflate: " + err.Error())
		}
		defer func() { _ = rc.Close() }()
		return readUpTo(rc, want)
	case CompressionPackBits:
		return unpackBits(src, want)
	case CompressionZSTD:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(src, mempool.GetBytes(want)[:0])
		if err != nil {
			return nil, FormatError("zstd: " + err.Error())
		}
		return out, nil
	default:
		return nil, UnsupportedError(fmt.Sprintf("compression value %d", compression))
	}
}

func readUpTo(r io.Reader, want int) ([]byte, error) {
	buf := mempool.GetBytes(want)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		mempool.PutBytes(buf)
		return nil, FormatError("strip: " + err.Error())
	}
	return buf[:n], nil
}

// unpackBits decodes PackBits run-length data.
func unpackBits(src []byte, want int) ([]byte, error) {
	out := mempool.GetBytes(want)[:0]
	for i := 0; i < len(src) && len(out) < want; {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			end := i + n + 1
			if end > len(src) {
				return nil, FormatError("packbits literal overruns strip")
			}
			out = append(out, src[i:end]...)
			i = end
		case n != -128:
			if i >= len(src) {
				return nil, FormatError("packbits run overruns strip")
			}
			for range 1 - n {
				out = append(out, src[i])
			}
			i++
		}
	}
	return out, nil
}
