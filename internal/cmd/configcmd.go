package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foliolens/foliolens/internal/advisor"
	"github.com/foliolens/foliolens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the merged configuration (defaults, config file, and environment
variables) as YAML. API keys and tokens are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}

		redacted := *cfg
		redacted.Broker.APIKey = redact(redacted.Broker.APIKey)
		redacted.Broker.APISecret = redact(redacted.Broker.APISecret)
		redacted.Broker.AccessToken = redact(redacted.Broker.AccessToken)
		redacted.Store.AuthToken = redact(redacted.Store.AuthToken)

		// Copy the provider map so redaction does not touch the live config.
		providers := make(map[string]advisor.ProviderConfig, len(redacted.Advisor.Providers))
		for id, p := range redacted.Advisor.Providers {
			p.APIKey = redact(p.APIKey)
			providers[id] = p
		}
		redacted.Advisor.Providers = providers

		encoded, err := yaml.Marshal(redacted)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}

		fmt.Print(string(encoded))
		return nil
	},
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "[redacted]"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
