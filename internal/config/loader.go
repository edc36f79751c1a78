// Package config provides centralized configuration management for FolioLens.
// Configuration merges three layers: built-in defaults, an optional YAML file
// (explicit path, XDG config dir, or working directory), and FOLIOLENS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	envPrefix = "FOLIOLENS"
	appName   = "foliolens"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Load reads configuration, optionally from an explicit file path. It is safe
// to call multiple times (e.g. for config reload).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// An explicit path that does not exist is a hard error; the
			// search-path case just means no file layer.
			if strings.TrimSpace(path) != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
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
		return nil, fmt.Errorf("create config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(cfg.Reports.Dir) == "" {
		cfg.Reports.Dir = "reports"
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.format", "markdown")

	v.SetDefault("broker.base_url", "")
	v.SetDefault("broker.api_key", "")
	v.SetDefault("broker.api_secret", "")
	v.SetDefault("broker.access_token", "")

	v.SetDefault("advisor.default_provider", "gemini")
	v.SetDefault("advisor.cache_ttl", "24h")
	v.SetDefault("advisor.providers.gemini.enabled", true)
	v.SetDefault("advisor.providers.gemini.driver", "gemini")
	v.SetDefault("advisor.providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("advisor.providers.gemini.api_key", "")
	v.SetDefault("advisor.providers.openai.enabled", false)
	v.SetDefault("advisor.providers.openai.driver", "openai")
	v.SetDefault("advisor.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("advisor.providers.openai.api_key", "")
	v.SetDefault("advisor.routing.analysis", "")
	v.SetDefault("advisor.routing.suggestions", "")

	v.SetDefault("engine.max_attempts", 3)
	v.SetDefault("engine.base_backoff", "1s")
	v.SetDefault("engine.multiplier", 2.0)
	v.SetDefault("engine.max_jitter", "250ms")
	v.SetDefault("engine.min_interval", "1s")
	v.SetDefault("engine.timeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("health.enabled", true)
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, appName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DefaultStorePath returns the default path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if dataDir == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
