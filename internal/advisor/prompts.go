package advisor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/foliolens/foliolens/internal/advisor/driver"
	"github.com/foliolens/foliolens/internal/core"
)

const analysisSystemPrompt = `You are an expert portfolio analyst for Indian equity markets.
You receive a brokerage portfolio snapshot as JSON and respond with a single JSON object, no prose and no markdown fences.
Amounts are in INR. Be specific and actionable; never invent holdings that are not in the snapshot.`

const analysisUserTemplate = `Analyze this portfolio snapshot:

%s

Respond with one JSON object using exactly these keys:
{
  "executive_summary": {"total_investment": number, "current_value": number, "total_pnl": number, "total_pnl_percentage": number, "number_of_holdings": number, "risk_level": "Low|Medium|High"},
  "holdings_analysis": [{"symbol": string, "sector": string, "pnl": number, "pnl_percentage": number, "weight_in_portfolio": number, "recommendation": string}],
  "sector_analysis": {"sector_allocation": [{"sector": string, "percentage": number, "value": number}]},
  "key_insights": [string],
  "risk_warnings": [string],
  "opportunities": [string]
}`

const suggestionSystemPrompt = `You are an investment advisor for Indian retail investors.
You receive a portfolio analysis and the investor's stated preferences as JSON and respond with a single JSON object, no prose and no markdown fences.
Ground every suggestion in the analysis and preferences provided. Amounts are in INR.`

const suggestionUserTemplate = `Portfolio analysis:

%s

Investor preferences:

%s

Respond with one JSON object using exactly these keys:
{
  "immediate_actions": [{"action": string, "priority": "high|medium|low", "timeframe": string, "reason": string}],
  "new_investment_ideas": [{"symbol": string, "sector": string, "suggested_allocation": number, "rationale": string}],
  "risk_management": [string],
  "target_allocation": {"<asset class>": number},
  "implementation_timeline": {"<phase>": string}
}`

func analysisMessages(snapshot *core.PortfolioSnapshot) ([]driver.Message, error) {
	if snapshot == nil || len(snapshot.Holdings) == 0 {
		return nil, errors.New("snapshot with holdings is required")
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return []driver.Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(analysisUserTemplate, payload)},
	}, nil
}

func suggestionMessages(analysis *core.Analysis, prefs *core.Preferences) ([]driver.Message, error) {
	if analysis == nil {
		return nil, errors.New("analysis is required")
	}

	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	prefsJSON := []byte("{}")
	if prefs != nil {
		prefsJSON, err = json.MarshalIndent(prefs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode preferences: %w", err)
		}
	}

	return []driver.Message{
		{Role: "system", Content: suggestionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(suggestionUserTemplate, analysisJSON, prefsJSON)},
	}, nil
}
