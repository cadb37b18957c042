package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server/handlers"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify the configuration loads and the admission components can be built.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewInternalError("Logger not initialized"))
			return
		}
		observability.CLILogger.Info("Running health check...")

		v := handlers.CurrentVersion()
		observability.CLILogger.Debug("Version check passed", zap.String("version", v.App.Version))
		observability.CLILogger.Info("✅ Version information available")

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded")

		comps, err := buildComponents(cfg)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Component initialization failed", err)
			return
		}
		if comps.redis != nil {
			if err := comps.redis.CheckHealth(cmd.Context()); err != nil {
				_ = comps.close()
				ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Stats backend unreachable", err)
				return
			}
			observability.CLILogger.Info("✅ Stats backend reachable")
		}
		_ = comps.close()
		observability.CLILogger.Info("✅ Admission limiters ready")

		if cfg.Assistant.APIKey == "" {
			observability.CLILogger.Warn("⚠️  Assistant API key not configured")
		} else {
			observability.CLILogger.Info("✅ Assistant API key configured")
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
