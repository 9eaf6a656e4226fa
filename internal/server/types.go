// Package server exposes the dispatcher over HTTP and WebSocket.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// decoderInterface defines the methods needed by the server from a dispatcher.
type decoderInterface interface {
	DecodeFit(ctx context.Context, path string, maxDimension int) (*raster.Raster, error)
	Class(path string) (decoder.Class, bool)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	decoder     decoderInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host               string
	Port               int
	CORSOrigin         string
	MaxUploadMB        int64
	TimeoutSec         int // bounds video frame grabs only
	RateLimitPerMinute int
	DailyQuotaMB       int64
	Logger             *slog.Logger
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ExtensionsResponse is returned by /extensions.
type ExtensionsResponse struct {
	Classes map[string][]string `json:"classes"`
	Count   int                 `json:"count"`
}

// DecodeResult describes a canonical raster without its pixels.
type DecodeResult struct {
	Filename     string  `json:"filename"`
	Class        string  `json:"class"`
	Height       int     `json:"height"`
	Width        int     `json:"width"`
	Channels     int     `json:"channels"`
	ProcessingMs float64 `json:"processing_ms"`
}

// DecodeResponse wraps a result or an error for JSON clients.
type DecodeResponse struct {
	Success   bool          `json:"success"`
	Result    *DecodeResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
}

// NewServer creates a server around d.
func NewServer(config Config, d decoderInterface) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		decoder:     d,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		logger:      logger,
	}
	if config.RateLimitPerMinute > 0 || config.DailyQuotaMB > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimitPerMinute, config.DailyQuotaMB*1024*1024)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/extensions", s.corsMiddleware(s.extensionsHandler))
	mux.HandleFunc("/decode", s.corsMiddleware(s.rateLimitMiddleware(s.decodeHandler)))
	mux.HandleFunc("/ws/decode", s.rateLimitMiddleware(s.decodeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
