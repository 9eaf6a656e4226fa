package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
)

func newExtensionsCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "List supported file extensions by decoder class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			byClass := decoder.ExtensionsByClass()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				m := make(map[string][]string, len(byClass))
				for c, exts := range byClass {
					m[c.String()] = exts
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			case "text":
				for _, c := range decoder.Classes {
					_, _ = fmt.Fprintf(out, "%-26s %s\n", c.String(), strings.Join(byClass[c], " "))
				}
				_, _ = fmt.Fprintf(out, "%d extensions\n", len(decoder.SupportedExtensions()))
				return nil
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format: text or json")
	return cmd
}
