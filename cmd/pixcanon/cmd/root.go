package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pixcanon/internal/config"
	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/version"
)

// app carries the state shared by one command tree.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute builds the command tree and runs it.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand returns a fresh root command. Each call gets its own viper
// instance, so tests can execute commands repeatedly without leaking flags.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "pixcanon",
		Short: "Decode images of many formats into canonical 8-bit RGB rasters",
		Long: `pixcanon reads layered documents, scientific TIFFs, alpha rasters,
common raster formats, camera RAW files and video frames, and turns each
into a canonical 8-bit RGB raster (height x width x 3).

Examples:
  pixcanon decode photo.CR2 --out photo.png
  pixcanon batch scans/ --recursive --max-dim 512 --thumbnails thumbs/
  pixcanon serve --port 8080
  pixcanon extensions`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("pixcanon version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pixcanon, /etc/pixcanon)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newDecodeCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newExtensionsCmd(a),
		newConfigCmd(a),
		newBenchCmd(a),
	)
	return rootCmd
}

// init loads configuration and sets up structured logging on stderr, keeping
// stdout free for command output.
func (a *app) init(logOut io.Writer) error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	return nil
}

// dispatcher builds the decoder dispatcher from the loaded configuration.
func (a *app) dispatcher() (*decoder.Dispatcher, error) {
	d, err := decoder.New(a.cfg.DecoderOptions(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize decoders: %w", err)
	}
	return d, nil
}
