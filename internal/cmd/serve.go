package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/config"
	errwrap "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/metrics"
	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server"
	"github.com/folioai/chatgate/internal/server/handlers"
)

// AdminTokenEnv enables POST /admin/signal when set.
const AdminTokenEnv = config.EnvPrefix + "_ADMIN_TOKEN"

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// limiterHealthChecker fails when a quota store was not built.
type limiterHealthChecker struct {
	c *components
}

func (l limiterHealthChecker) CheckHealth(ctx context.Context) error {
	if l.c == nil || l.c.chat == nil || l.c.chat.Gate == nil || l.c.chat.Gate.Rate == nil || l.c.chat.Gate.Question == nil {
		return errwrap.NewInternalError("admission limiters not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the chat API server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config file re-read (restart to apply quota changes)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.InitServerLogger(binaryName, cfg.Logging.Level, binaryName)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = observability.DefaultMetricsPort
		}
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(binaryName, metricsPort, binaryName); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		version := handlers.CurrentVersion()
		observability.ServerLogger.Info("Initializing server",
			zap.String("service", binaryName),
			zap.String("version", version.App.Version),
			zap.String("environment", observability.Environment()),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", metricsPort),
			zap.String("stats_driver", cfg.Stats.Driver),
			zap.Bool("api_key_configured", cfg.Assistant.APIKey != ""))

		if cfg.Assistant.APIKey == "" {
			observability.ServerLogger.Warn("No assistant API key configured; chat requests will fail with API_KEY_MISSING")
		}

		comps, err := buildComponents(cfg)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "component initialization failed")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		comps.startJanitors(ctx)

		if cfg.Health.Enabled {
			hm := handlers.InitHealthManager(version.App.Version)
			hm.RegisterChecker("limiters", limiterHealthChecker{c: comps})
			if cfg.Metrics.Enabled {
				hm.RegisterChecker("telemetry", telemetryHealthChecker{})
			}
			if comps.redis != nil {
				hm.RegisterChecker("stats_redis", comps.redis)
			}
		}

		srv := server.New(cfg.Server.Host, cfg.Server.Port,
			server.WithChat(comps.chat),
			server.WithAPIQuota(comps.api),
			server.WithCORSOrigin(cfg.CORS.AllowedOrigin),
			server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
			server.WithAdminToken(os.Getenv(AdminTokenEnv)),
		)

		shutdownTimeout := cfg.Server.ShutdownTimeout

		// Shutdown handlers run LIFO.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		if cfg.Metrics.Enabled {
			signals.OnShutdown(func(ctx context.Context) error {
				if err := observability.StopMetrics(); err != nil {
					observability.ServerLogger.Warn("Failed to stop metrics exporter", zap.Error(err))
				}
				return nil
			})
		}

		signals.OnShutdown(func(ctx context.Context) error {
			if err := comps.close(); err != nil {
				observability.ServerLogger.Warn("Failed to close stats backend", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			cancel()
			shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
			defer done()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: re-reading config file")

			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if errors.As(err, &notFound) {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			if _, err := loadConfig(); err != nil {
				observability.ServerLogger.Error("Reloaded config is invalid", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded; restart to apply server and quota changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
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

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
