package cmd

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pixcanon/internal/batch"
	"github.com/MeKo-Tech/pixcanon/internal/config"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Decode many files in parallel",
		Long: `Decode files and directory contents in parallel. A file that fails to
decode is reported and the batch carries on.

Examples:
  pixcanon batch *.psd *.tif
  pixcanon batch photos/ --recursive --workers 8
  pixcanon batch raw/ --max-dim 256 --thumbnails thumbs/ --format json --output report.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	f := cmd.Flags()
	f.IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))
	f.BoolP("recursive", "r", false, "recursively scan directories")
	f.StringSlice("include", nil, "file name patterns to include (e.g. *.tif)")
	f.StringSlice("exclude", nil, "file name patterns to exclude")
	f.Int("max-dim", 0, "fit each raster inside a square of this size (0 keeps full size)")
	f.String("thumbnails", "", "directory to write each raster as PNG")
	f.StringP("format", "f", "text", "output format: text, json, yaml, csv")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.Bool("progress", false, "show progress bar")
	f.Bool("quiet", false, "suppress progress output")
	f.Bool("stats", false, "show processing statistics")
	f.Duration("progress-interval", 100*time.Millisecond, "progress update interval")
	f.Bool("fail-on-error", false, "exit with an error when any file fails to decode")
	return cmd
}

// configToBatchConfig maps the loaded configuration to batch.Config. Flags
// that were set explicitly override configuration values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	flags := cmd.Flags()

	if cfg.Batch.Workers > 0 {
		bc.Workers = cfg.Batch.Workers
	}
	if flags.Changed("workers") {
		bc.Workers, _ = flags.GetInt("workers")
	}

	bc.Recursive = cfg.Batch.Recursive
	if flags.Changed("recursive") {
		bc.Recursive, _ = flags.GetBool("recursive")
	}

	bc.IncludePatterns = cfg.Batch.Include
	if flags.Changed("include") {
		bc.IncludePatterns, _ = flags.GetStringSlice("include")
	}

	bc.ExcludePatterns = cfg.Batch.Exclude
	if flags.Changed("exclude") {
		bc.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	}

	bc.MaxDimension = cfg.Fit.MaxDimension
	if flags.Changed("max-dim") {
		bc.MaxDimension, _ = flags.GetInt("max-dim")
	}

	bc.ThumbnailDir = cfg.Batch.OutputDir
	if flags.Changed("thumbnails") {
		bc.ThumbnailDir, _ = flags.GetString("thumbnails")
	}

	if cfg.Batch.Format != "" {
		bc.Format = cfg.Batch.Format
	}
	if flags.Changed("format") {
		bc.Format, _ = flags.GetString("format")
	}

	// CLI-only settings
	bc.OutputFile, _ = flags.GetString("output")
	bc.ShowProgress, _ = flags.GetBool("progress")
	bc.Quiet, _ = flags.GetBool("quiet")
	bc.ShowStats, _ = flags.GetBool("stats")
	bc.ProgressInterval, _ = flags.GetDuration("progress-interval")

	return bc
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	bc := configToBatchConfig(a.cfg, cmd)
	bc.Logger = a.logger
	if bc.Workers < 1 {
		return fmt.Errorf("invalid --workers %d: must be positive", bc.Workers)
	}
	if bc.MaxDimension < 0 {
		return fmt.Errorf("invalid --max-dim %d: must not be negative", bc.MaxDimension)
	}

	d, err := a.dispatcher()
	if err != nil {
		return err
	}

	result, err := batch.ProcessBatch(cmd.Context(), d, args, bc)
	if err != nil {
		if errors.Is(err, batch.ErrNoFiles) || result == nil {
			return fmt.Errorf("batch processing failed: %w", err)
		}
		a.logger.Warn("Batch interrupted, reporting partial results", "error", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if bc.ShowStats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}

	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	if failed := result.Failed(); failOnError && len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to decode", len(failed), len(result.Files))
	}
	return nil
}
