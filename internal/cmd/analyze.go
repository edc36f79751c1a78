package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/advisor"
	"github.com/foliolens/foliolens/internal/config"
	"github.com/foliolens/foliolens/internal/core"
	"github.com/foliolens/foliolens/internal/core/engine"
	"github.com/foliolens/foliolens/internal/metrics"
	"github.com/foliolens/foliolens/internal/observability"
	"github.com/foliolens/foliolens/internal/output"
	"github.com/foliolens/foliolens/internal/questionnaire"
)

var (
	analyzeFormat    string
	analyzeOutputDir string
	analyzeUseSaved  bool
	analyzeNoCache   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch the portfolio, analyze it, and write a report",
	Long: `Fetch the portfolio from the brokerage, run the model analysis and
personalized suggestions, and write the report to disk.

Preferences come from the interactive questionnaire unless --use-saved loads
the most recent saved answers. When the model provider is unavailable the
report falls back to a deterministic analysis derived from brokerage data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.GetConfig()
		logger := observability.CLILogger

		requested := analyzeFormat
		if requested == "" {
			requested = cfg.Reports.Format
		}
		format, err := output.ParseFormat(requested)
		if err != nil {
			return err
		}

		reportsDir := analyzeOutputDir
		if reportsDir == "" {
			reportsDir = cfg.Reports.Dir
		}

		db, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		prefs, err := resolvePreferences(cmd, db)
		if err != nil {
			return err
		}

		var cache advisor.AnalysisCache
		if !analyzeNoCache {
			cache = db
		}

		service := advisor.NewService(cfg.Advisor, cfg.Engine.RetryPolicy(), cache, logger)

		pipeline := &engine.Pipeline{
			Portfolio: newBrokerClient(cfg),
			Advisor:   service,
			Logger:    logger,
			Sink: engine.ReportSinkFunc(func(report *core.Report) (*core.ReportRecord, error) {
				record, err := output.WriteReport(reportsDir, report, format, nil)
				if err != nil {
					return nil, err
				}
				if indexed, err := db.IndexReport(ctx, *record); err != nil {
					logger.Warn("Failed to index report", zap.Error(err))
				} else {
					record = indexed
				}
				metrics.RecordReportWritten(string(format))
				return record, nil
			}),
		}

		started := time.Now()
		result, err := pipeline.Run(ctx, prefs)
		metrics.RecordPipelineRun(err == nil, result != nil && result.Degraded, time.Since(started))
		if err != nil {
			return err
		}

		if result.Degraded {
			logger.Warn("Report generated without model assistance (deterministic fallback)")
		}

		fmt.Printf("Report written to %s\n", result.Record.Path)
		return nil
	},
}

// resolvePreferences loads saved answers or runs the questionnaire.
func resolvePreferences(cmd *cobra.Command, db preferenceStore) (*core.Preferences, error) {
	ctx := cmd.Context()

	if analyzeUseSaved {
		record, err := db.LatestPreferences(ctx)
		if err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
		if record == nil {
			return nil, fmt.Errorf("no saved preferences; run without --use-saved or run: foliolens preferences collect")
		}
		return &record.Preferences, nil
	}

	q := questionnaire.New(os.Stdin, os.Stdout)
	prefs, err := q.Run()
	if err != nil {
		return nil, fmt.Errorf("collect preferences: %w", err)
	}

	if _, err := db.SavePreferences(ctx, *prefs); err != nil {
		observability.CLILogger.Warn("Failed to save preferences", zap.Error(err))
	}
	return prefs, nil
}

// preferenceStore is the slice of the store the analyze flow needs for
// questionnaire answers.
type preferenceStore interface {
	LatestPreferences(ctx context.Context) (*core.PreferenceRecord, error)
	SavePreferences(ctx context.Context, prefs core.Preferences) (*core.PreferenceRecord, error)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "report format: markdown, table, or json (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeOutputDir, "output-dir", "o", "", "directory to write the report to (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeUseSaved, "use-saved", false, "reuse the most recently saved preferences")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "bypass the analysis cache")
}
