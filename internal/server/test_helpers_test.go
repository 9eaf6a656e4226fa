package server

import (
	"bytes"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
)

// newTestServer returns a server around the production dispatcher.
func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	d, err := decoder.New(decoder.Options{Logger: logger})
	require.NoError(t, err)

	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 10
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = 10
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	cfg.Logger = logger
	return NewServer(cfg, d)
}

// createMultipartRequest builds a POST to path with the file in field
// "file" and the extra form values.
func createMultipartRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
