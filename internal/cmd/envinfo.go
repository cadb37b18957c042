package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/config"
	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server/handlers"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. Secrets are reported as set/unset only.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		v := handlers.CurrentVersion()

		log.Info("=== chatgate Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + v.App.Name)
		log.Info("  Version:    " + v.App.Version)
		log.Info("  Commit:     " + v.App.Commit)
		log.Info("  Built:      " + v.App.BuildDate)
		log.Info("  Env:        "+observability.Environment(), zap.String("environment", observability.Environment()))
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+v.Dependencies.Gofulmen, zap.String("gofulmen_version", v.Dependencies.Gofulmen))
		log.Info("  Crucible:   "+v.Dependencies.Crucible, zap.String("crucible_version", v.Dependencies.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  Platform:   "+v.Runtime.Platform, zap.String("platform", v.Runtime.Platform))
		log.Info(fmt.Sprintf("  NumCPU:     %d", v.Runtime.NumCPU), zap.Int("num_cpu", v.Runtime.NumCPU))
		log.Info("")

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = "(none)"
		}

		log.Info("Configuration:")
		log.Info("  Config File:    " + configFile)
		log.Info(fmt.Sprintf("  Server:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:        enabled=%t port=%d", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("  CORS Origin:    " + cfg.CORS.AllowedOrigin)
		log.Info("")

		log.Info("Assistant:")
		log.Info("  Base URL:       " + cfg.Assistant.BaseURL)
		log.Info("  Thread ID:      " + cfg.Assistant.ThreadID)
		log.Info("  Assistant ID:   " + cfg.Assistant.AssistantID)
		log.Info("  API Key:        " + setOrUnset(cfg.Assistant.APIKey))
		log.Info(fmt.Sprintf("  Poll:           every %s, %d attempts", cfg.Assistant.PollInterval, cfg.Assistant.MaxAttempts))
		log.Info(fmt.Sprintf("  Max Message:    %d chars", cfg.Assistant.MaxMessageLength))
		log.Info("")

		log.Info("Quotas:")
		for _, q := range []struct {
			name string
			w    config.WindowConfig
		}{
			{"rate", cfg.Limits.Rate},
			{"question", cfg.Limits.Question},
			{"api", cfg.Limits.API},
		} {
			log.Info(fmt.Sprintf("  %-9s %d per %s (sweep %s)", q.name+":", q.w.Limit, q.w.Window, q.w.SweepEvery))
		}
		log.Info("")

		log.Info("Admission Stats:")
		log.Info("  Driver:         " + cfg.Stats.Driver)
		if cfg.Stats.Driver == "redis" {
			log.Info("  Redis Addr:     " + cfg.Stats.RedisAddr)
			log.Info("  Redis Password: " + setOrUnset(cfg.Stats.RedisPassword))
			log.Info("  Prefix:         " + cfg.Stats.Prefix)
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func setOrUnset(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
