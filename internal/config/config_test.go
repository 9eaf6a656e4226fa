package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// TestDefaultConfig tests the default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Video.Offset != time.Second {
		t.Errorf("Expected video offset 1s, got %s", cfg.Video.Offset)
	}
	if cfg.Video.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected ffmpeg path 'ffmpeg', got %s", cfg.Video.FFmpegPath)
	}
	if cfg.Fit.MaxDimension != 0 {
		t.Errorf("Expected fit disabled by default, got %d", cfg.Fit.MaxDimension)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Expected 4 batch workers, got %d", cfg.Batch.Workers)
	}
	if cfg.Batch.Format != "text" {
		t.Errorf("Expected batch format 'text', got %s", cfg.Batch.Format)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

// TestValidate tests each validation rule in isolation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"negative offset", func(c *Config) { c.Video.Offset = -time.Second }, "video.offset"},
		{"negative fit", func(c *Config) { c.Fit.MaxDimension = -1 }, "fit.max_dimension"},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"bad format", func(c *Config) { c.Batch.Format = "xml" }, "batch.format"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "server.max_upload_mb"},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "server.timeout_sec"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }, "server.rate_limit_per_minute"},
		{"negative quota", func(c *Config) { c.Server.DailyQuotaMB = -5 }, "server.daily_quota_mb"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -1 }, "server.shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if len(verr.Problems) != 1 {
				t.Errorf("Expected one problem, got %v", verr.Problems)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("Expected error to mention %s, got %v", tt.problem, err)
			}
		})
	}
}

// TestValidateCollectsAllProblems tests that every invalid field is reported.
func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	cfg.Batch.Workers = -2
	cfg.Server.Port = -1

	var verr *ValidationError
	if err := cfg.Validate(); !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if len(verr.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
}

// TestValidateEmptyFormatAllowed tests that an empty batch format falls back to text.
func TestValidateEmptyFormatAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Format = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

// TestDecoderOptions tests conversion to dispatcher options.
func TestDecoderOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Video.Offset = 2500 * time.Millisecond
	cfg.Video.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"
	logger := slog.New(slog.DiscardHandler)

	opts := cfg.DecoderOptions(logger)
	if opts.VideoOffset != 2500*time.Millisecond {
		t.Errorf("Expected offset 2.5s, got %s", opts.VideoOffset)
	}
	if opts.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Expected ffmpeg path to carry over, got %s", opts.FFmpegPath)
	}
	if opts.Logger != logger {
		t.Error("Expected logger to carry over")
	}
}

// TestSlogLevel tests log level mapping.
func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    slog.Level
	}{
		{debugLevel, false, slog.LevelDebug},
		{infoLevel, false, slog.LevelInfo},
		{"warn", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		cfg := Config{LogLevel: tt.level, Verbose: tt.verbose}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%s, verbose=%v) = %v, want %v", tt.level, tt.verbose, got, tt.want)
		}
	}
}
