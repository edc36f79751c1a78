package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/observability"
	"github.com/foliolens/foliolens/internal/questionnaire"
)

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Manage investment preferences",
}

var preferencesCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the preference questionnaire and save the answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		q := questionnaire.New(os.Stdin, os.Stdout)
		prefs, err := q.Run()
		if err != nil {
			return fmt.Errorf("collect preferences: %w", err)
		}

		record, err := db.SavePreferences(cmd.Context(), *prefs)
		if err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}

		observability.CLILogger.Info("Preferences saved",
			zap.String("id", record.ID),
			zap.String("primary_goal", prefs.Goals.PrimaryGoal))
		return nil
	},
}

var preferencesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the most recently saved preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		record, err := db.LatestPreferences(cmd.Context())
		if err != nil {
			return err
		}
		if record == nil {
			fmt.Println("No preferences saved yet. Run: foliolens preferences collect")
			return nil
		}

		encoded, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

var preferencesListLimit int

var preferencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved preference records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListPreferences(cmd.Context(), preferencesListLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Preferences")
		t.AppendHeader(table.Row{"Created", "ID", "Goal", "Horizon", "Risk"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.ID,
				r.Preferences.Goals.PrimaryGoal,
				r.Preferences.Goals.TimeHorizon,
				r.Preferences.Risk.Tolerance,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preferencesCmd)
	preferencesCmd.AddCommand(preferencesCollectCmd)
	preferencesCmd.AddCommand(preferencesShowCmd)
	preferencesCmd.AddCommand(preferencesListCmd)
	preferencesListCmd.Flags().IntVarP(&preferencesListLimit, "limit", "n", 20, "maximum number of records to list")
}
