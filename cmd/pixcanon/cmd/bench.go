package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pixcanon/internal/benchmark"
)

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <files...>",
		Short: "Time repeated decodes of each file",
		Long: `Decode each file repeatedly and report the average time and the bytes
allocated per decode.

Examples:
  pixcanon bench sample.psd sample.cr2 --iterations 20
  pixcanon bench scan.tif --max-dim 512`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iterations, _ := cmd.Flags().GetInt("iterations")
			if iterations < 1 {
				return fmt.Errorf("invalid --iterations %d: must be positive", iterations)
			}
			maxDim := a.cfg.Fit.MaxDimension
			if cmd.Flags().Changed("max-dim") {
				maxDim, _ = cmd.Flags().GetInt("max-dim")
			}

			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			suite, skipped := benchmark.NewDecodeSuite(cmd.Context(), d, args, maxDim)
			for _, p := range skipped {
				a.logger.Warn("Skipping unsupported file", "path", p)
			}

			results := suite.RunAll(iterations)
			suite.PrintResults(cmd.OutOrStdout())

			failed := 0
			for _, r := range results {
				if r.Error != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d benchmarks failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntP("iterations", "n", 10, "decodes per file")
	cmd.Flags().Int("max-dim", 0, "fit each raster inside a square of this size (0 keeps full size)")
	return cmd
}
