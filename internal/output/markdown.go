package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foliolens/foliolens/internal/core"
)

// MarkdownFormatter renders the full report as a Markdown document.
type MarkdownFormatter struct{}

// FormatReport renders a report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.Report) (string, error) {
	if report == nil || report.Analysis == nil {
		return "", errors.New("report with analysis is required")
	}

	var sb strings.Builder
	sb.WriteString("# Portfolio Analysis Report\n\n")
	if !report.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	}
	if report.Snapshot != nil && report.Snapshot.Profile != nil && report.Snapshot.Profile.UserName != "" {
		sb.WriteString(fmt.Sprintf("Account: %s (%s)\n\n", escapeCell(report.Snapshot.Profile.UserName), escapeCell(report.Snapshot.Profile.UserID)))
	}

	writeSummarySection(&sb, report.Analysis.Summary)
	writeGoalSection(&sb, report.Preferences, report.Analysis)
	writeHoldingsSection(&sb, report.Analysis.Holdings)
	writeSectorSection(&sb, report.Analysis.Sectors.Allocation)
	writeListSection(&sb, "Key Insights", report.Analysis.KeyInsights)
	writeListSection(&sb, "Risk Warnings", report.Analysis.RiskWarnings)
	writeListSection(&sb, "Opportunities", report.Analysis.Opportunities)
	writeSuggestionsSection(&sb, report.Suggestions)
	writeDataQualitySection(&sb, report.Snapshot)

	if report.Analysis.Fallback {
		sb.WriteString("---\n\n_This analysis was derived directly from brokerage data without model assistance._\n\n")
	}

	sb.WriteString("---\n\n_This report is for informational purposes only and does not constitute investment advice._\n")

	return sb.String(), nil
}

func writeGoalSection(sb *strings.Builder, prefs *core.Preferences, analysis *core.Analysis) {
	if prefs == nil {
		return
	}

	sb.WriteString("## Goal Progress\n\n")
	if prefs.Goals.PrimaryGoal != "" {
		sb.WriteString(fmt.Sprintf("Primary goal: %s (%s horizon)\n\n", escapeCell(prefs.Goals.PrimaryGoal), escapeCell(prefs.Goals.TimeHorizon)))
	}

	if prefs.Goals.TargetCorpus > 0 {
		years := core.YearsToTarget(
			prefs.Goals.TargetCorpus,
			analysis.Summary.CurrentValue,
			prefs.Goals.MonthlyAddition,
			prefs.Constraints.AdditionalBudget,
		)
		switch {
		case years == 0:
			sb.WriteString(fmt.Sprintf("Target corpus of %s already reached.\n\n", inr(float64(prefs.Goals.TargetCorpus))))
		case years < 0:
			sb.WriteString(fmt.Sprintf("Target corpus: %s. Add monthly contributions to estimate a timeline.\n\n", inr(float64(prefs.Goals.TargetCorpus))))
		default:
			sb.WriteString(fmt.Sprintf("Target corpus: %s, roughly %.1f years away at the planned contribution rate (before returns).\n\n",
				inr(float64(prefs.Goals.TargetCorpus)), years))
		}
	}

	if missing := missingPreferredSectors(prefs, analysis); len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("Preferred sectors not yet represented: %s.\n\n", strings.Join(missing, ", ")))
	}
}

// missingPreferredSectors reports preferred sectors absent from the current
// allocation.
func missingPreferredSectors(prefs *core.Preferences, analysis *core.Analysis) []string {
	if prefs == nil || len(prefs.Portfolio.PreferredSectors) == 0 {
		return nil
	}

	held := make(map[string]bool, len(analysis.Sectors.Allocation))
	for _, s := range analysis.Sectors.Allocation {
		held[strings.ToLower(strings.TrimSpace(s.Sector))] = true
	}

	var missing []string
	for _, sector := range prefs.Portfolio.PreferredSectors {
		if !held[strings.ToLower(strings.TrimSpace(sector))] {
			missing = append(missing, sector)
		}
	}
	return missing
}

func writeSummarySection(sb *strings.Builder, summary core.ExecutiveSummary) {
	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Investment | %s |\n", inr(summary.TotalInvestment)))
	sb.WriteString(fmt.Sprintf("| Current Value | %s |\n", inr(summary.CurrentValue)))
	sb.WriteString(fmt.Sprintf("| Total P&L | %s (%s) |\n", inr(summary.TotalPnL), percent(summary.TotalPnLPercent)))
	sb.WriteString(fmt.Sprintf("| Holdings | %d |\n", summary.HoldingsCount))
	if summary.RiskLevel != "" {
		sb.WriteString(fmt.Sprintf("| Risk Level | %s |\n", escapeCell(summary.RiskLevel)))
	}
	sb.WriteString("\n")
}

func writeHoldingsSection(sb *strings.Builder, holdings []core.HoldingInsight) {
	if len(holdings) == 0 {
		return
	}

	sb.WriteString("## Holdings Analysis\n\n")
	sb.WriteString("| Symbol | Sector | P&L | P&L % | Weight | Recommendation |\n")
	sb.WriteString("|--------|--------|-----|-------|--------|----------------|\n")
	for _, h := range holdings {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			escapeCell(h.Symbol),
			escapeCell(h.Sector),
			inr(h.PnL),
			percent(h.PnLPercent),
			percent(h.Weight),
			escapeCell(h.Recommendation),
		))
	}
	sb.WriteString("\n")
}

func writeSectorSection(sb *strings.Builder, allocation []core.SectorAllocation) {
	if len(allocation) == 0 {
		return
	}

	sb.WriteString("## Sector Allocation\n\n")
	sb.WriteString("| Sector | Allocation | Value |\n")
	sb.WriteString("|--------|------------|-------|\n")
	for _, s := range allocation {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(s.Sector), percent(s.Percent), inr(s.Value)))
	}
	sb.WriteString("\n")
}

func writeListSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	sb.WriteString("## " + title + "\n\n")
	for _, item := range items {
		sb.WriteString("- " + strings.TrimSpace(item) + "\n")
	}
	sb.WriteString("\n")
}

func writeSuggestionsSection(sb *strings.Builder, suggestions *core.SuggestionSet) {
	if suggestions == nil {
		return
	}

	sb.WriteString("## Recommendations\n\n")

	if len(suggestions.ImmediateActions) > 0 {
		sb.WriteString("### Immediate Actions\n\n")
		for i, action := range suggestions.ImmediateActions {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%s", i+1, escapeCell(action.Action), action.Priority))
			if action.Timeframe != "" {
				sb.WriteString(", " + action.Timeframe)
			}
			sb.WriteString(")")
			if action.Reason != "" {
				sb.WriteString(" - " + escapeCell(action.Reason))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(suggestions.NewIdeas) > 0 {
		sb.WriteString("### New Investment Ideas\n\n")
		sb.WriteString("| Symbol | Sector | Suggested Allocation | Rationale |\n")
		sb.WriteString("|--------|--------|----------------------|-----------|\n")
		for _, idea := range suggestions.NewIdeas {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				escapeCell(idea.Symbol),
				escapeCell(idea.Sector),
				percent(idea.Allocation),
				escapeCell(idea.Rationale),
			))
		}
		sb.WriteString("\n")
	}

	if len(suggestions.RiskManagement) > 0 {
		sb.WriteString("### Risk Management\n\n")
		for _, item := range suggestions.RiskManagement {
			sb.WriteString("- " + strings.TrimSpace(item) + "\n")
		}
		sb.WriteString("\n")
	}

	if len(suggestions.TargetAllocation) > 0 {
		sb.WriteString("### Target Allocation\n\n")
		for _, class := range sortedKeys(suggestions.TargetAllocation) {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", escapeCell(class), percent(suggestions.TargetAllocation[class])))
		}
		sb.WriteString("\n")
	}

	if len(suggestions.Timeline) > 0 {
		sb.WriteString("### Implementation Timeline\n\n")
		for _, phase := range sortedKeys(suggestions.Timeline) {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", escapeCell(phase), escapeCell(suggestions.Timeline[phase])))
		}
		sb.WriteString("\n")
	}

	if suggestions.Fallback {
		sb.WriteString("_Recommendations are generic; personalized advice was unavailable for this run._\n\n")
	}
}

func writeDataQualitySection(sb *strings.Builder, snapshot *core.PortfolioSnapshot) {
	if snapshot == nil || len(snapshot.DataQuality) == 0 {
		return
	}

	sb.WriteString("## Data Quality Notes\n\n")
	for _, section := range sortedKeys(snapshot.DataQuality) {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", section, snapshot.DataQuality[section]))
	}
	sb.WriteString("\n")
}

func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
