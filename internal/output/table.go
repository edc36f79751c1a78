package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/foliolens/foliolens/internal/core"
)

// TableFormatter renders the report as ASCII tables for the terminal.
type TableFormatter struct{}

// FormatReport renders a report as tables.
func (f *TableFormatter) FormatReport(report *core.Report) (string, error) {
	if report == nil || report.Analysis == nil {
		return "", errors.New("report with analysis is required")
	}

	var sb strings.Builder

	summary := report.Analysis.Summary
	st := table.NewWriter()
	st.SetStyle(table.StyleRounded)
	st.SetTitle("Executive Summary")
	st.AppendRow(table.Row{"Total Investment", inr(summary.TotalInvestment)})
	st.AppendRow(table.Row{"Current Value", inr(summary.CurrentValue)})
	st.AppendRow(table.Row{"Total P&L", fmt.Sprintf("%s (%s)", inr(summary.TotalPnL), percent(summary.TotalPnLPercent))})
	st.AppendRow(table.Row{"Holdings", summary.HoldingsCount})
	if summary.RiskLevel != "" {
		st.AppendRow(table.Row{"Risk Level", summary.RiskLevel})
	}
	sb.WriteString(st.Render())
	sb.WriteString("\n")

	if len(report.Analysis.Holdings) > 0 {
		ht := table.NewWriter()
		ht.SetStyle(table.StyleRounded)
		ht.SetTitle("Holdings")
		ht.AppendHeader(table.Row{"Symbol", "Sector", "P&L", "P&L %", "Weight"})
		for _, h := range report.Analysis.Holdings {
			ht.AppendRow(table.Row{h.Symbol, h.Sector, inr(h.PnL), percent(h.PnLPercent), percent(h.Weight)})
		}
		sb.WriteString("\n")
		sb.WriteString(ht.Render())
		sb.WriteString("\n")
	}

	if len(report.Analysis.Sectors.Allocation) > 0 {
		at := table.NewWriter()
		at.SetStyle(table.StyleRounded)
		at.SetTitle("Sector Allocation")
		at.AppendHeader(table.Row{"Sector", "Allocation", "Value"})
		for _, s := range report.Analysis.Sectors.Allocation {
			at.AppendRow(table.Row{s.Sector, percent(s.Percent), inr(s.Value)})
		}
		sb.WriteString("\n")
		sb.WriteString(at.Render())
		sb.WriteString("\n")
	}

	writePlainList(&sb, "Key Insights", report.Analysis.KeyInsights)
	writePlainList(&sb, "Risk Warnings", report.Analysis.RiskWarnings)
	writePlainList(&sb, "Opportunities", report.Analysis.Opportunities)

	if report.Suggestions != nil && len(report.Suggestions.ImmediateActions) > 0 {
		sb.WriteString("\nImmediate Actions:\n")
		for i, action := range report.Suggestions.ImmediateActions {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, action.Priority, action.Action))
		}
	}

	if report.Analysis.Fallback {
		sb.WriteString("\nNote: analysis derived directly from brokerage data without model assistance.\n")
	}

	return sb.String(), nil
}

func writePlainList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	sb.WriteString("\n" + title + ":\n")
	for _, item := range items {
		sb.WriteString("  - " + strings.TrimSpace(item) + "\n")
	}
}
