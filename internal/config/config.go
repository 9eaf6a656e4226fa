package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/video"
)

// Output formats accepted for batch results.
var validFormats = []string{"text", "json", "yaml", "csv"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Video: VideoConfig{
			Offset:     video.DefaultOffset,
			FFmpegPath: "ffmpeg",
		},
		Fit: FitConfig{MaxDimension: 0},
		Batch: BatchConfig{
			Workers:   4,
			Recursive: false,
			Format:    "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     200,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
	}
}

// ValidationError lists every invalid field found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate validates the configuration. It returns a *ValidationError when
// any field is out of range.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		verr.add("log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Video.Offset < 0 {
		verr.add("video.offset %s must not be negative", c.Video.Offset)
	}
	if c.Fit.MaxDimension < 0 {
		verr.add("fit.max_dimension %d must not be negative", c.Fit.MaxDimension)
	}

	if c.Batch.Workers <= 0 {
		verr.add("batch.workers %d must be positive", c.Batch.Workers)
	}
	if c.Batch.Format != "" && !slices.Contains(validFormats, c.Batch.Format) {
		verr.add("batch.format %q must be one of: %s", c.Batch.Format, strings.Join(validFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		verr.add("server.port %d must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		verr.add("server.max_upload_mb %d must be positive", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		verr.add("server.timeout_sec %d must be positive", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		verr.add("server.shutdown_timeout %d must not be negative", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitPerMinute < 0 {
		verr.add("server.rate_limit_per_minute %d must not be negative", c.Server.RateLimitPerMinute)
	}
	if c.Server.DailyQuotaMB < 0 {
		verr.add("server.daily_quota_mb %d must not be negative", c.Server.DailyQuotaMB)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// DecoderOptions converts the config to dispatcher options.
func (c *Config) DecoderOptions(logger *slog.Logger) decoder.Options {
	opts := decoder.DefaultOptions()
	opts.VideoOffset = c.Video.Offset
	if c.Video.FFmpegPath != "" {
		opts.FFmpegPath = c.Video.FFmpegPath
	}
	if logger != nil {
		opts.Logger = logger
	}
	return opts
}

// SlogLevel maps LogLevel to a slog level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
