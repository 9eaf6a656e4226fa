package batch

import (
	"log/slog"
	"runtime"
	"time"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	MaxDimension int    // fit each raster inside this square; 0 keeps full size
	ThumbnailDir string // write each canonical raster here as PNG when set
	Format       string
	OutputFile   string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for batch processing.
func DefaultConfig() *Config {
	return &Config{
		Workers:          runtime.NumCPU(),
		Format:           "text",
		ProgressInterval: 100 * time.Millisecond,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
