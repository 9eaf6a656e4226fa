package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pixcanon/internal/config"
	"github.com/MeKo-Tech/pixcanon/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the decode API",
		Long: `Start an HTTP server that decodes uploaded files.

The server provides the following endpoints:
  POST /decode     - Decode an uploaded file (multipart field "file")
  GET  /ws/decode  - WebSocket decode requests
  GET  /extensions - List supported extensions by class
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Examples:
  pixcanon serve
  pixcanon serve --port 8080
  pixcanon serve --host 0.0.0.0 --port 3000 --rate-limit 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 200, "maximum upload size in MB")
	f.Int("timeout", 60, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Int("rate-limit", 0, "maximum requests per minute per client (0 disables)")
	f.Int("daily-quota", 0, "maximum upload MB per day per client (0 disables)")
	return cmd
}

// serverConfig maps the loaded configuration to server.Config. Flags that
// were set explicitly override configuration values.
func serverConfig(cfg *config.Config, cmd *cobra.Command) (server.Config, int) {
	s := cfg.Server
	flags := cmd.Flags()

	if flags.Changed("host") {
		s.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		s.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		s.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		s.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		s.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("rate-limit") {
		s.RateLimitPerMinute, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("daily-quota") {
		s.DailyQuotaMB, _ = flags.GetInt("daily-quota")
	}

	return server.Config{
		Host:               s.Host,
		Port:               s.Port,
		CORSOrigin:         s.CORSOrigin,
		MaxUploadMB:        int64(s.MaxUploadMB),
		TimeoutSec:         s.TimeoutSec,
		RateLimitPerMinute: s.RateLimitPerMinute,
		DailyQuotaMB:       int64(s.DailyQuotaMB),
	}, s.ShutdownTimeout
}

func (a *app) runServe(cmd *cobra.Command) error {
	sc, shutdownTimeout := serverConfig(a.cfg, cmd)
	if sc.Port < 1 || sc.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", sc.Port)
	}
	if sc.MaxUploadMB <= 0 || sc.TimeoutSec <= 0 {
		return errors.New("max upload size and timeout must be positive")
	}
	sc.Logger = a.logger

	d, err := a.dispatcher()
	if err != nil {
		return err
	}
	srv := server.NewServer(sc, d)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(sc.TimeoutSec+5) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting decode server", "host", sc.Host, "port", sc.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	a.logger.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	a.logger.Info("Graceful shutdown completed")
	return nil
}
