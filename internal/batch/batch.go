// Package batch decodes many files concurrently, skipping the ones that fail.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// ErrNoFiles is returned when discovery finds nothing to decode.
var ErrNoFiles = errors.New("no image files found")

// Result holds the result of batch processing.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarises a batch.
type Stats struct {
	Total            int     `json:"total" yaml:"total"`
	Succeeded        int     `json:"succeeded" yaml:"succeeded"`
	Failed           int     `json:"failed" yaml:"failed"`
	Workers          int     `json:"workers" yaml:"workers"`
	DurationMS       float64 `json:"duration_ms" yaml:"duration_ms"`
	ThroughputPerSec float64 `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// ProcessBatch discovers files under paths and decodes them with d. A file
// that fails is recorded and the batch carries on; only discovery errors and
// cancellation abort it.
func ProcessBatch(ctx context.Context, d Decoder, paths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}

	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var progress ProgressCallback = NewLogProgressCallback(config.logger(), slog.LevelDebug)
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(os.Stderr, "Decoding: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	workers := config.Workers
	start := time.Now()
	results, err := runPool(ctx, files, workers, progress, func(ctx context.Context, path string) FileResult {
		return processSingleFile(ctx, d, path, config)
	})
	res := &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}
	if err != nil {
		return res, fmt.Errorf("batch interrupted: %w", err)
	}
	return res, nil
}

// Stats calculates summary statistics for the batch.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:      len(r.Files),
		Workers:    r.WorkerCount,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
	}
	for _, f := range r.Files {
		if f.OK() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	if r.Duration > 0 {
		s.ThroughputPerSec = float64(s.Succeeded) / r.Duration.Seconds()
	}
	return s
}

// Failed returns the results that did not decode.
func (r *Result) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", stats.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", stats.ThroughputPerSec)
}
