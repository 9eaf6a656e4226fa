package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

type decodeOutput struct {
	Path     string  `json:"path"`
	Class    string  `json:"class"`
	Height   int     `json:"height"`
	Width    int     `json:"width"`
	Channels int     `json:"channels"`
	Output   string  `json:"output,omitempty"`
	Ms       float64 `json:"duration_ms"`
}

func newDecodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a single file into a canonical RGB raster",
		Long: `Decode one file with the decoder registered for its extension and report
the raster shape. With --out the raster is written as PNG.

Examples:
  pixcanon decode scan.tif
  pixcanon decode clip.mp4 --out frame.png
  pixcanon decode IMG_0001.NEF --max-dim 1024 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDecode(cmd, args[0])
		},
	}
	cmd.Flags().StringP("out", "o", "", "write the raster as PNG to this path")
	cmd.Flags().Int("max-dim", 0, "fit the raster inside a square of this size (0 keeps full size)")
	cmd.Flags().StringP("format", "f", "text", "report format: text or json")
	return cmd
}

func (a *app) runDecode(cmd *cobra.Command, path string) error {
	maxDim := a.cfg.Fit.MaxDimension
	if cmd.Flags().Changed("max-dim") {
		maxDim, _ = cmd.Flags().GetInt("max-dim")
	}
	if maxDim < 0 {
		return fmt.Errorf("invalid --max-dim %d: must not be negative", maxDim)
	}
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format: %s", format)
	}

	d, err := a.dispatcher()
	if err != nil {
		return err
	}
	class, ok := d.Class(path)
	if !ok {
		return fmt.Errorf("unsupported file type: %s", path)
	}

	start := time.Now()
	r, err := d.DecodeFit(cmd.Context(), path, maxDim)
	if err != nil {
		return err
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if out != "" {
		if err := writePNG(out, r); err != nil {
			return err
		}
	}

	h, w, c := r.Shape()
	report := decodeOutput{
		Path: path, Class: class.String(),
		Height: h, Width: w, Channels: c,
		Output: out, Ms: elapsed,
	}
	stdout := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s %dx%dx%d\n", path, report.Class, h, w, c)
	if out != "" {
		_, _ = fmt.Fprintf(stdout, "wrote %s\n", out)
	}
	return nil
}

func writePNG(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := raster.EncodePNG(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return f.Close()
}
