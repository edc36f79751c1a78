package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var reportsLimit int

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List previously generated reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListReports(cmd.Context(), reportsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Reports")
		t.AppendHeader(table.Row{"Created", "Filename", "Format", "Goal"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Filename,
				r.Format,
				r.PrimaryGoal,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "maximum number of reports to list")
}
