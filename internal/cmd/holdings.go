package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/broker"
	"github.com/foliolens/foliolens/internal/config"
	"github.com/foliolens/foliolens/internal/core"
	"github.com/foliolens/foliolens/internal/observability"
)

var holdingsCmd = &cobra.Command{
	Use:   "holdings",
	Short: "Show current holdings from the brokerage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		client := newBrokerClient(cfg)

		snapshot, err := client.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch portfolio: %w", err)
		}

		summary := core.ComputeSummary(snapshot.Holdings)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Holdings")
		t.AppendHeader(table.Row{"Symbol", "Qty", "Avg Price", "Last Price", "P&L", "Sector"})
		for _, h := range snapshot.Holdings {
			t.AppendRow(table.Row{
				h.Symbol,
				h.Quantity,
				fmt.Sprintf("%.2f", h.AveragePrice),
				fmt.Sprintf("%.2f", h.LastPrice),
				fmt.Sprintf("%.2f", h.PnL),
				h.Sector,
			})
		}
		t.AppendFooter(table.Row{
			"Total", "", "",
			fmt.Sprintf("%.2f", summary.CurrentValue),
			fmt.Sprintf("%.2f", summary.TotalPnL),
			"",
		})
		t.Render()

		for section, status := range snapshot.DataQuality {
			observability.CLILogger.Warn("Portfolio section unavailable",
				zap.String("section", section),
				zap.String("status", status))
		}
		return nil
	},
}

func newBrokerClient(cfg *config.Config) *broker.Client {
	client := broker.NewClient(cfg.Broker.BaseURL, cfg.Broker.APIKey, cfg.Broker.AccessToken)
	client.Logger = observability.CLILogger
	return client
}

func init() {
	rootCmd.AddCommand(holdingsCmd)
}
