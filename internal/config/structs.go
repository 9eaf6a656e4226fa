//nolint:lll
package config

import "time"

// Config represents the complete configuration for pixcanon.
// It includes settings for all commands (decode, batch, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Video frame extraction
	Video VideoConfig `mapstructure:"video" yaml:"video" json:"video"`

	// Fit transform applied after decoding
	Fit FitConfig `mapstructure:"fit" yaml:"fit" json:"fit"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// VideoConfig contains settings for the video-frame decoder.
type VideoConfig struct {
	Offset     time.Duration `mapstructure:"offset" yaml:"offset" json:"offset"`
	FFmpegPath string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path" json:"ffmpeg_path"`
}

// FitConfig contains the default bounding size. Zero disables fitting.
type FitConfig struct {
	MaxDimension int `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Format    string   `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings. TimeoutSec bounds ffmpeg frame
// grabs only; image decoders run to completion once started, so it does not
// cut short a slow TIFF or PSD decode.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Per-client limits; zero disables them
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	DailyQuotaMB       int `mapstructure:"daily_quota_mb" yaml:"daily_quota_mb" json:"daily_quota_mb"`
}
