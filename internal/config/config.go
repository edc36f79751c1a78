package config

import (
	"time"

	"github.com/foliolens/foliolens/internal/advisor"
	"github.com/foliolens/foliolens/internal/core/engine"
)

// Config represents the complete application configuration, assembled from
// defaults, an optional YAML file, and FOLIOLENS_* environment overrides.
type Config struct {
	Store   StoreConfig    `mapstructure:"store"`
	Reports ReportsConfig  `mapstructure:"reports"`
	Broker  BrokerConfig   `mapstructure:"broker"`
	Advisor advisor.Config `mapstructure:"advisor"`
	Engine  EngineConfig   `mapstructure:"engine"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Server  ServerConfig   `mapstructure:"server"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Health  HealthConfig   `mapstructure:"health"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ReportsConfig controls where rendered reports land.
type ReportsConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// BrokerConfig contains brokerage API credentials.
type BrokerConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccessToken string `mapstructure:"access_token"`
}

// EngineConfig controls pacing and retry for provider calls.
type EngineConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxJitter   time.Duration `mapstructure:"max_jitter"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RetryPolicy converts the config section into an engine policy. Zero fields
// fall back to the engine defaults.
func (c EngineConfig) RetryPolicy() engine.RetryPolicy {
	policy := engine.DefaultRetryPolicy()
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.BaseBackoff > 0 {
		policy.BaseBackoff = c.BaseBackoff
	}
	if c.Multiplier >= 1 {
		policy.Multiplier = c.Multiplier
	}
	if c.MaxJitter > 0 {
		policy.MaxJitter = c.MaxJitter
	}
	if c.MinInterval > 0 {
		policy.MinInterval = c.MinInterval
	}
	if c.Timeout > 0 {
		policy.Timeout = c.Timeout
	}
	return policy
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level.
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// ServerConfig contains HTTP status server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig contains telemetry configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is where the Prometheus exporter listens. Zero picks a random port.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
