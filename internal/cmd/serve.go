package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/config"
	errwrap "github.com/foliolens/foliolens/internal/errors"
	"github.com/foliolens/foliolens/internal/metrics"
	"github.com/foliolens/foliolens/internal/observability"
	"github.com/foliolens/foliolens/internal/server"
	"github.com/foliolens/foliolens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP status server",
	Long: `Start the HTTP status server with graceful shutdown support.

The server exposes health probes, version information, and the report index.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload

The server cleanly shuts down the HTTP server and flushes logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()

		serverCfg := cfg.Server
		if serverHost != "" {
			serverCfg.Host = serverHost
		}
		if serverPort != 0 {
			serverCfg.Port = serverPort
		}

		observability.InitServerLogger("foliolens", cfg.Logging.Level)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics("foliolens", cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
			started := time.Now()
			metrics.SetServerStartTime(started.Unix())
			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					metrics.SetServerUptime(int64(time.Since(started).Seconds()))
				}
			}()
		}

		logger.Info("Initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("host", serverCfg.Host),
			zap.Int("port", serverCfg.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled))

		db, err := openStore(cmd.Context())
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to open store")
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		var health *handlers.HealthManager
		if cfg.Health.Enabled {
			health = handlers.NewHealthManager(versionInfo.Version)
			health.RegisterChecker("store", db)
		}

		srv := server.New(server.Options{
			Config: serverCfg,
			Health: health,
			Reports: &handlers.ReportsHandler{
				Reports:     db,
				Preferences: db,
			},
			Metrics: cfg.Metrics.Enabled,
		})

		shutdownTimeout := serverCfg.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 15 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server first, logger flush last.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: reloading configuration")
			if _, err := config.Load(cfgFile); err != nil {
				logger.Error("Failed to reload config", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}
			logger.Info("Configuration reloaded successfully")
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", serverCfg.Host),
				zap.Int("port", serverCfg.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (default from config)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (default from config)")
}
