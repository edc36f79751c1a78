package advisor

import "time"

// Roles the advisor routes. Each maps to a provider id in Config.Routing.
const (
	RoleAnalysis    = "analysis"
	RoleSuggestions = "suggestions"
)

// ProviderConfig describes one configured model provider instance.
type ProviderConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Driver      string   `mapstructure:"driver"`
	BaseURL     string   `mapstructure:"base_url"`
	APIKey      string   `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
}

// Config holds provider instances and role routing for the advisor.
type Config struct {
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	Routing         map[string]string         `mapstructure:"routing"`
	CacheTTL        time.Duration             `mapstructure:"cache_ttl"`
}

// ProviderFor resolves the provider id for a role, falling back to the
// default provider when the role has no explicit route.
func (c Config) ProviderFor(role string) string {
	if id, ok := c.Routing[role]; ok && id != "" {
		return id
	}
	return c.DefaultProvider
}
