package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/broker"
	"github.com/foliolens/foliolens/internal/config"
	"github.com/foliolens/foliolens/internal/observability"
)

var requestToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain a brokerage access token",
	Long: `Print the brokerage login URL, then exchange the request token for an
access token.

Open the printed URL in a browser, complete the login, and copy the
request_token query parameter from the redirect URL. Then run:

  foliolens login --request-token <token>

The printed access token goes into the broker.access_token config key or the
FOLIOLENS_BROKER_ACCESS_TOKEN environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg.Broker.APIKey == "" {
			return fmt.Errorf("broker.api_key is not configured")
		}

		client := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.APIKey, "")
		client.Logger = observability.CLILogger

		if requestToken == "" {
			fmt.Printf("Open this URL in a browser to log in:\n\n  %s\n\n", client.LoginURL())
			fmt.Println("Then rerun with --request-token <token from redirect URL>.")
			return nil
		}

		if cfg.Broker.APISecret == "" {
			return fmt.Errorf("broker.api_secret is not configured")
		}

		session, err := client.GenerateSession(cmd.Context(), requestToken, cfg.Broker.APISecret)
		if err != nil {
			return fmt.Errorf("generate session: %w", err)
		}

		observability.CLILogger.Info("Session established",
			zap.String("user_id", session.UserID),
			zap.String("user_name", session.UserName))

		fmt.Printf("Access token: %s\n", session.AccessToken)
		fmt.Println("Store it in broker.access_token or FOLIOLENS_BROKER_ACCESS_TOKEN.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&requestToken, "request-token", "", "request token from the login redirect URL")
}
