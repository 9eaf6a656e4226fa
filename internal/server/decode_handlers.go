package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// Output formats for decoded rasters.
const (
	formatJSON = "json"
	formatPNG  = "png"
	formatRaw  = "raw"
)

// requestError carries the HTTP status and machine-readable type for a
// failed decode request.
type requestError struct {
	status int
	kind   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// decodeRequest is the transport-independent part of a decode call.
type decodeRequest struct {
	Filename     string
	MaxDimension int
	Format       string
}

func (req *decodeRequest) validate() error {
	switch req.Format {
	case "":
		req.Format = formatJSON
	case formatJSON, formatPNG, formatRaw:
	default:
		return &requestError{http.StatusBadRequest, "invalid_request", "unsupported format: " + req.Format}
	}
	if req.MaxDimension < 0 {
		return &requestError{http.StatusBadRequest, "invalid_request", "max_dim must not be negative"}
	}
	if req.Filename == "" {
		return &requestError{http.StatusBadRequest, "invalid_request", "filename is required"}
	}
	return nil
}

// decodeHandler accepts a multipart upload in field "file" and returns the
// canonical raster as JSON metadata, PNG or raw HWC bytes.
//
// The server timeout reaches only the video decoder, which aborts its ffmpeg
// process and answers 504. Image decoders ignore the deadline.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, "too_large", "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorResponse(w, "invalid_request", "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	req := decodeRequest{Filename: header.Filename, Format: r.FormValue("format")}
	if v := r.FormValue("max_dim"); v != "" {
		if req.MaxDimension, err = strconv.Atoi(v); err != nil {
			s.writeErrorResponse(w, "invalid_request", "max_dim must be an integer", http.StatusBadRequest)
			return
		}
	}

	rast, result, err := s.decodeUpload(r.Context(), req, file)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			s.writeErrorResponse(w, reqErr.kind, reqErr.msg, reqErr.status)
		} else {
			s.writeErrorResponse(w, "internal_error", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.writeRaster(w, req.Format, rast, result)
}

// decodeUpload spools src to a temporary file carrying the upload's
// extension and decodes it. The timeout context bounds video decodes only.
func (s *Server) decodeUpload(ctx context.Context, req decodeRequest, src io.Reader) (*raster.Raster, *DecodeResult, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	class, ok := s.decoder.Class(req.Filename)
	if !ok {
		return nil, nil, &requestError{
			http.StatusUnsupportedMediaType, "unsupported_extension",
			fmt.Sprintf("unsupported extension: %q", filepath.Ext(req.Filename)),
		}
	}

	path, cleanup, err := spoolUpload(src, filepath.Base(req.Filename))
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	rast, err := s.decoder.DecodeFit(ctx, path, req.MaxDimension)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, &requestError{http.StatusGatewayTimeout, "timeout", "decode timed out"}
		}
		if errors.Is(err, raster.ErrDecodeFailure) {
			return nil, nil, &requestError{http.StatusUnprocessableEntity, "decode_failure", err.Error()}
		}
		return nil, nil, err
	}

	h, w, c := rast.Shape()
	return rast, &DecodeResult{
		Filename:     req.Filename,
		Class:        class.String(),
		Height:       h,
		Width:        w,
		Channels:     c,
		ProcessingMs: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// spoolUpload copies src into a temp file named after name's extension,
// since the dispatcher routes on extension.
func spoolUpload(src io.Reader, name string) (string, func(), error) {
	f, err := os.CreateTemp("", "pixcanon-upload-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to store upload: %w", err)
	}
	return f.Name(), cleanup, nil
}

func (s *Server) writeRaster(w http.ResponseWriter, format string, r *raster.Raster, result *DecodeResult) {
	switch format {
	case formatPNG:
		w.Header().Set("Content-Type", "image/png")
		setShapeHeaders(w, result)
		if err := raster.EncodePNG(w, r); err != nil {
			s.logger.Error("Failed to write PNG response", "error", err)
		}
	case formatRaw:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(r.Pix)))
		setShapeHeaders(w, result)
		if _, err := w.Write(r.Pix); err != nil {
			s.logger.Error("Failed to write raw response", "error", err)
		}
	default:
		s.writeJSON(w, http.StatusOK, DecodeResponse{Success: true, Result: result})
	}
}

func setShapeHeaders(w http.ResponseWriter, result *DecodeResult) {
	w.Header().Set("X-Raster-Class", result.Class)
	w.Header().Set("X-Raster-Height", strconv.Itoa(result.Height))
	w.Header().Set("X-Raster-Width", strconv.Itoa(result.Width))
	w.Header().Set("X-Raster-Channels", strconv.Itoa(result.Channels))
}
