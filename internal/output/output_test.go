package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliolens/foliolens/internal/core"
)

func sampleReport() *core.Report {
	return &core.Report{
		Snapshot: &core.PortfolioSnapshot{
			Profile: &core.InvestorProfile{UserID: "AB1234", UserName: "Test User"},
			Holdings: []core.Holding{
				{Symbol: "INFY", Sector: "IT", Quantity: 10, AveragePrice: 1500, LastPrice: 1650, PnL: 1500},
			},
			DataQuality: map[string]string{"margins": "unavailable"},
		},
		Analysis: &core.Analysis{
			Summary: core.ExecutiveSummary{
				TotalInvestment: 15000,
				CurrentValue:    16500,
				TotalPnL:        1500,
				TotalPnLPercent: 10,
				HoldingsCount:   1,
				RiskLevel:       "High",
			},
			Holdings: []core.HoldingInsight{
				{Symbol: "INFY", Sector: "IT", PnL: 1500, PnLPercent: 10, Weight: 100, Recommendation: "hold"},
			},
			Sectors: core.SectorAnalysis{
				Allocation: []core.SectorAllocation{{Sector: "IT", Percent: 100, Value: 16500}},
			},
			KeyInsights:  []string{"single-stock portfolio"},
			RiskWarnings: []string{"no diversification"},
		},
		Suggestions: &core.SuggestionSet{
			ImmediateActions: []core.SuggestedAction{
				{Action: "Add holdings outside IT", Priority: "high", Timeframe: "this month", Reason: "concentration"},
			},
			TargetAllocation: map[string]float64{"equity": 70, "debt": 30},
		},
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	for value, want := range map[string]Format{
		"":         FormatMarkdown,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"TABLE":    FormatTable,
		"json":     FormatJSON,
	} {
		got, err := ParseFormat(value)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := (&MarkdownFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)

	require.Contains(t, rendered, "# Portfolio Analysis Report")
	require.Contains(t, rendered, "Generated: 2025-06-01 09:30:00 UTC")
	require.Contains(t, rendered, "| Total Investment | ₹15000.00 |")
	require.Contains(t, rendered, "| Total P&L | ₹1500.00 (10.00%) |")
	require.Contains(t, rendered, "## Holdings Analysis")
	require.Contains(t, rendered, "| INFY | IT |")
	require.Contains(t, rendered, "## Key Insights")
	require.Contains(t, rendered, "- single-stock portfolio")
	require.Contains(t, rendered, "### Immediate Actions")
	require.Contains(t, rendered, "### Target Allocation")
	require.Contains(t, rendered, "- debt: 30.00%")
	require.Contains(t, rendered, "## Data Quality Notes")
	require.NotContains(t, rendered, "without model assistance")
}

func TestMarkdownFormatterGoalSection(t *testing.T) {
	report := sampleReport()
	report.Preferences = &core.Preferences{
		Goals: core.InvestmentGoals{
			PrimaryGoal:     "retirement",
			TimeHorizon:     "10+y",
			TargetCorpus:    400000,
			MonthlyAddition: 10000,
		},
		Portfolio: core.PortfolioPreferences{
			PreferredSectors: []string{"IT", "Pharma"},
		},
		Constraints: core.Constraints{AdditionalBudget: 60000},
	}

	rendered, err := (&MarkdownFormatter{}).FormatReport(report)
	require.NoError(t, err)

	require.Contains(t, rendered, "## Goal Progress")
	require.Contains(t, rendered, "Primary goal: retirement (10+y horizon)")
	// (400000 - 16500 - 60000) / (10000 * 12) per year, rounded to one decimal.
	require.Contains(t, rendered, "roughly 2.7 years away")
	require.Contains(t, rendered, "Preferred sectors not yet represented: Pharma.")
	require.Contains(t, rendered, "does not constitute investment advice")
}

func TestMarkdownFormatterFallbackNote(t *testing.T) {
	report := sampleReport()
	report.Analysis.Fallback = true

	rendered, err := (&MarkdownFormatter{}).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "without model assistance")
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)

	require.Contains(t, rendered, "Executive Summary")
	require.Contains(t, rendered, "INFY")
	require.Contains(t, rendered, "Key Insights:")
	require.Contains(t, rendered, "Immediate Actions:")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded core.Report
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, 1, decoded.Analysis.Summary.HoldingsCount)
	require.Len(t, decoded.Suggestions.ImmediateActions, 1)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	clock := func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }

	record, err := WriteReport(dir, sampleReport(), FormatMarkdown, clock)
	require.NoError(t, err)
	require.Equal(t, "portfolio_analysis_20250601_093000.md", record.Filename)
	require.Equal(t, "markdown", record.Format)

	content, err := os.ReadFile(record.Path)
	require.NoError(t, err)
	require.Contains(t, string(content), "# Portfolio Analysis Report")
}

func TestWriteReportRequiresAnalysisForMarkdown(t *testing.T) {
	_, err := WriteReport(t.TempDir(), &core.Report{}, FormatMarkdown, nil)
	require.Error(t, err)
}
