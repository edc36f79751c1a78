package core

import (
	"fmt"
	"time"
)

// FallbackAnalysis derives a deterministic analysis from the snapshot alone.
// It is used whenever the model is unreachable or returns an unusable
// payload, so a run always produces a report.
func FallbackAnalysis(snapshot *PortfolioSnapshot) *Analysis {
	analysis := &Analysis{
		Fallback:    true,
		GeneratedAt: time.Now().UTC(),
	}
	if snapshot == nil {
		return analysis
	}

	analysis.Summary = ComputeSummary(snapshot.Holdings)
	analysis.Holdings = HoldingInsights(snapshot.Holdings)
	analysis.Sectors = SectorAnalysis{Allocation: SectorBreakdown(snapshot.Holdings)}

	analysis.KeyInsights = []string{
		fmt.Sprintf("Portfolio holds %d positions worth %.2f.", analysis.Summary.HoldingsCount, analysis.Summary.CurrentValue),
		fmt.Sprintf("Overall P&L is %.2f (%.2f%%).", analysis.Summary.TotalPnL, analysis.Summary.TotalPnLPercent),
	}
	if analysis.Summary.HoldingsCount > 0 && analysis.Summary.HoldingsCount < 6 {
		analysis.RiskWarnings = append(analysis.RiskWarnings,
			"Portfolio is concentrated in few holdings; diversification would reduce single-stock risk.")
	}
	if analysis.Summary.TotalPnLPercent < 0 {
		analysis.RiskWarnings = append(analysis.RiskWarnings,
			"Portfolio is currently below invested value; review losing positions before adding exposure.")
	}

	return analysis
}

// FallbackSuggestions derives generic recommendations from preferences when
// the model cannot supply personalized ones.
func FallbackSuggestions(prefs *Preferences) *SuggestionSet {
	suggestions := &SuggestionSet{
		Fallback: true,
		ImmediateActions: []SuggestedAction{
			{
				Action:    "Review holdings with losses beyond your stated drawdown limit",
				Priority:  "high",
				Timeframe: "this week",
				Reason:    "Keeps risk within tolerance while detailed advice is unavailable",
			},
			{
				Action:    "Continue systematic monthly investments across existing diversified holdings",
				Priority:  "medium",
				Timeframe: "ongoing",
				Reason:    "Rupee-cost averaging without single-stock concentration",
			},
		},
		RiskManagement: []string{
			"Keep position sizes below 10% of portfolio value",
			"Maintain an emergency fund outside the equity portfolio",
		},
		Timeline: map[string]string{
			"immediate": "Rebalance oversized positions",
			"quarterly": "Review sector allocation against targets",
		},
	}

	if prefs != nil && prefs.Portfolio.EquityAllocation > 0 {
		equity := float64(prefs.Portfolio.EquityAllocation)
		suggestions.TargetAllocation = map[string]float64{
			"equity": equity,
			"debt":   100 - equity,
		}
	}

	return suggestions
}
