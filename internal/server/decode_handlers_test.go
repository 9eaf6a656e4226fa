package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/testutil"
)

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) DecodeResponse {
	t.Helper()
	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestDecodeHandler_JSON(t *testing.T) {
	server := newTestServer(t, Config{})
	img := testutil.TranslucentImage(8, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	req := createMultipartRequest(t, "/decode", "logo.PNG", testutil.EncodePNG(t, img), nil)

	w := httptest.NewRecorder()
	server.decodeHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeJSON(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "logo.PNG", resp.Result.Filename)
	assert.Equal(t, "alpha-raster", resp.Result.Class)
	assert.Equal(t, 4, resp.Result.Height)
	assert.Equal(t, 8, resp.Result.Width)
	assert.Equal(t, 3, resp.Result.Channels)
}

func TestDecodeHandler_PNGWithFit(t *testing.T) {
	server := newTestServer(t, Config{})
	req := createMultipartRequest(t, "/decode", "wide.png",
		testutil.EncodePNG(t, testutil.Gradient(40, 20)),
		map[string]string{"format": "png", "max_dim": "10"})

	w := httptest.NewRecorder()
	server.decodeHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "5", w.Header().Get("X-Raster-Height"))
	assert.Equal(t, "10", w.Header().Get("X-Raster-Width"))

	out, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 5, out.Bounds().Dy())
}

func TestDecodeHandler_Raw(t *testing.T) {
	server := newTestServer(t, Config{})
	img := testutil.CreateTestImage(3, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	req := createMultipartRequest(t, "/decode", "flat.bmp", testutil.EncodeBMP(t, img),
		map[string]string{"format": "raw"})

	w := httptest.NewRecorder()
	server.decodeHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "generic-raster", w.Header().Get("X-Raster-Class"))
	require.Len(t, w.Body.Bytes(), 3*2*3)
	assert.Equal(t, []byte{200, 100, 50}, w.Body.Bytes()[:3])
}

func TestDecodeHandler_Errors(t *testing.T) {
	server := newTestServer(t, Config{})
	pngData := testutil.EncodePNG(t, testutil.Gradient(4, 4))

	tests := []struct {
		name      string
		filename  string
		data      []byte
		fields    map[string]string
		status    int
		errorType string
	}{
		{"missing file", "", nil, nil, http.StatusBadRequest, "invalid_request"},
		{"unsupported extension", "notes.txt", []byte("hello"), nil, http.StatusUnsupportedMediaType, "unsupported_extension"},
		{"no extension", "README", []byte("hello"), nil, http.StatusUnsupportedMediaType, "unsupported_extension"},
		{"corrupt content", "broken.tiff", []byte("II*\x00garbage"), nil, http.StatusUnprocessableEntity, "decode_failure"},
		{"bad max_dim", "a.png", pngData, map[string]string{"max_dim": "big"}, http.StatusBadRequest, "invalid_request"},
		{"negative max_dim", "a.png", pngData, map[string]string{"max_dim": "-3"}, http.StatusBadRequest, "invalid_request"},
		{"bad format", "a.png", pngData, map[string]string{"format": "gif"}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.decodeHandler(w, createMultipartRequest(t, "/decode", tt.filename, tt.data, tt.fields))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decodeJSON(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.errorType, resp.ErrorType)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDecodeHandler_MethodAndBody(t *testing.T) {
	server := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	server.decodeHandler(w, httptest.NewRequest(http.MethodGet, "/decode", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	server.decodeHandler(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecodeHandler_TooLarge(t *testing.T) {
	server := newTestServer(t, Config{MaxUploadMB: 1})
	big := bytes.Repeat([]byte{0xAB}, 2*1024*1024)

	w := httptest.NewRecorder()
	server.decodeHandler(w, createMultipartRequest(t, "/decode", "huge.png", big, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// slowDecoder blocks until its context ends.
type slowDecoder struct{}

func (slowDecoder) DecodeFit(ctx context.Context, _ string, _ int) (*raster.Raster, error) {
	<-ctx.Done()
	return nil, &decoder.DecodeError{Op: "decode", Err: ctx.Err()}
}

func (slowDecoder) Class(path string) (decoder.Class, bool) {
	return decoder.ClassOf(decoder.Ext(path))
}

func TestDecodeHandler_Timeout(t *testing.T) {
	server := NewServer(Config{MaxUploadMB: 1, TimeoutSec: 1, Logger: slog.New(slog.DiscardHandler)}, slowDecoder{})

	start := time.Now()
	w := httptest.NewRecorder()
	server.decodeHandler(w, createMultipartRequest(t, "/decode", "clip.mp4", []byte("moov"), nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", decodeJSON(t, w).ErrorType)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSpoolUpload_KeepsExtension(t *testing.T) {
	path, cleanup, err := spoolUpload(strings.NewReader("data"), "IMG_0001.CR2")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".CR2"))
	assert.True(t, testutil.FileExists(path))

	cleanup()
	assert.False(t, testutil.FileExists(path))
}
