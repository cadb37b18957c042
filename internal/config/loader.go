// Package config loads chatgate configuration from defaults, an optional YAML
// file, CHATGATE_* environment variables and bound CLI flags via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CHATGATE_SERVER_PORT.
const EnvPrefix = "CHATGATE"

// DefaultInstructions is the system instruction sent with every run.
const DefaultInstructions = "Bạn là AI Assistant của Vo Manh Cuong. Hãy trả lời một cách thân thiện, chuyên nghiệp và hữu ích. Sử dụng emoji phù hợp để làm cho cuộc trò chuyện thú vị hơn."

// Built-in upstream identifiers used when none are configured.
const (
	DefaultThreadID    = "thread_chLYGCsv13ynojKz7cggDm3Q"
	DefaultAssistantID = "asst_pYkFQbHeesxjmBqOQ0rpCcwE"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Assistant defaults
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.thread_id", DefaultThreadID)
	v.SetDefault("assistant.assistant_id", DefaultAssistantID)
	v.SetDefault("assistant.instructions", DefaultInstructions)
	v.SetDefault("assistant.poll_interval", "1s")
	v.SetDefault("assistant.max_attempts", 60)
	v.SetDefault("assistant.request_timeout", "15s")
	v.SetDefault("assistant.requests_per_second", 0)
	v.SetDefault("assistant.burst", 5)
	v.SetDefault("assistant.max_message_length", 4000)

	// Admission quotas
	v.SetDefault("limits.rate.limit", 30)
	v.SetDefault("limits.rate.window", "1m")
	v.SetDefault("limits.rate.sweep_every", "5m")
	v.SetDefault("limits.question.limit", 10)
	v.SetDefault("limits.question.window", "24h")
	v.SetDefault("limits.question.sweep_every", "1h")
	v.SetDefault("limits.api.limit", 100)
	v.SetDefault("limits.api.window", "1m")
	v.SetDefault("limits.api.sweep_every", "5m")

	// Admission stats
	v.SetDefault("stats.driver", "memory")
	v.SetDefault("stats.redis_addr", "")
	v.SetDefault("stats.redis_password", "")
	v.SetDefault("stats.redis_db", 0)
	v.SetDefault("stats.prefix", "chatgate:admissions")
	v.SetDefault("stats.ttl", "24h")
	v.SetDefault("stats.bucket", "minute")
	v.SetDefault("stats.track_keys", false)
	v.SetDefault("stats.record_timeout", "100ms")
	v.SetDefault("stats.dial_timeout", "250ms")
	v.SetDefault("stats.read_timeout", "100ms")
	v.SetDefault("stats.write_timeout", "100ms")
	v.SetDefault("stats.max_retries", 1)

	v.SetDefault("cors.allowed_origin", "*")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// BindEnv wires CHATGATE_* variables to nested keys (server.port -> CHATGATE_SERVER_PORT).
// OPENAI_API_KEY and OPENAI_ASSISTANT_ID are honoured as fallbacks.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("assistant.api_key", EnvPrefix+"_ASSISTANT_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("assistant.assistant_id", EnvPrefix+"_ASSISTANT_ASSISTANT_ID", "OPENAI_ASSISTANT_ID")
}

// Load decodes v into a Config, validates it and stores it as the current config.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("viper instance is required")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks values that would make the service misbehave.
//
// A missing API key is not an error here; it is reported per request.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var problems []string
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 0 and 65535")
	}
	if strings.TrimSpace(cfg.Assistant.ThreadID) == "" {
		problems = append(problems, "assistant.thread_id is required")
	}
	if strings.TrimSpace(cfg.Assistant.AssistantID) == "" {
		problems = append(problems, "assistant.assistant_id is required")
	}
	if cfg.Assistant.PollInterval <= 0 {
		problems = append(problems, "assistant.poll_interval must be > 0")
	}
	if cfg.Assistant.MaxAttempts <= 0 {
		problems = append(problems, "assistant.max_attempts must be > 0")
	}
	if cfg.Assistant.MaxMessageLength <= 0 {
		problems = append(problems, "assistant.max_message_length must be > 0")
	}
	for name, w := range map[string]WindowConfig{
		"limits.rate":     cfg.Limits.Rate,
		"limits.question": cfg.Limits.Question,
		"limits.api":      cfg.Limits.API,
	} {
		if w.Limit <= 0 {
			problems = append(problems, name+".limit must be > 0")
		}
		if w.Window <= 0 {
			problems = append(problems, name+".window must be > 0")
		}
	}
	switch cfg.Stats.Driver {
	case "memory", "none":
	case "redis":
		if strings.TrimSpace(cfg.Stats.RedisAddr) == "" {
			problems = append(problems, "stats.redis_addr is required when stats.driver=redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("stats.driver %q is not one of memory, redis, none", cfg.Stats.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func normalize(cfg *Config) {
	cfg.Assistant.APIKey = strings.TrimSpace(cfg.Assistant.APIKey)
	cfg.Assistant.ThreadID = strings.TrimSpace(cfg.Assistant.ThreadID)
	cfg.Assistant.AssistantID = strings.TrimSpace(cfg.Assistant.AssistantID)
	cfg.Stats.Driver = strings.ToLower(strings.TrimSpace(cfg.Stats.Driver))
	if cfg.Stats.Driver == "" {
		cfg.Stats.Driver = "memory"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.CORS.AllowedOrigin) == "" {
		cfg.CORS.AllowedOrigin = "*"
	}
}
