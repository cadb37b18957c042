package config

import (
	"time"
)

// Config is the complete chatgate configuration.
//
// Sources, lowest precedence first: built-in defaults (SetDefaults), the
// optional YAML config file, CHATGATE_* environment variables, CLI flags.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Stats     StatsConfig     `mapstructure:"stats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AssistantConfig points at the upstream assistant thread and tunes the poll loop.
//
// APIKey may be empty at startup; chat requests then fail with API_KEY_MISSING
// before any upstream call.
type AssistantConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ThreadID          string        `mapstructure:"thread_id"`
	AssistantID       string        `mapstructure:"assistant_id"`
	Instructions      string        `mapstructure:"instructions"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxMessageLength  int           `mapstructure:"max_message_length"`
}

// WindowConfig configures one fixed-window quota.
type WindowConfig struct {
	Limit      int           `mapstructure:"limit"`
	Window     time.Duration `mapstructure:"window"`
	SweepEvery time.Duration `mapstructure:"sweep_every"`
}

// LimitsConfig holds the independent admission quotas.
type LimitsConfig struct {
	// Rate bounds chat requests per identity over a short window.
	Rate WindowConfig `mapstructure:"rate"`
	// Question bounds answered questions per identity per day.
	Question WindowConfig `mapstructure:"question"`
	// API guards the read-only status and history endpoints.
	API WindowConfig `mapstructure:"api"`
}

// StatsConfig selects where admission decisions are tallied.
type StatsConfig struct {
	// Driver is one of: memory, redis, none
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	Bucket        string        `mapstructure:"bucket"`
	TrackKeys     bool          `mapstructure:"track_keys"`
	// RecordTimeout bounds each stats write on the request path.
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// CORSConfig controls the preflight response of the chat endpoint.
type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: simple, structured
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
