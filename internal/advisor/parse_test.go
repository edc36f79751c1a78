package advisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	t.Run("PlainObject", func(t *testing.T) {
		out, err := extractJSONObject(`{"a":1}`)
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, out)
	})

	t.Run("MarkdownFences", func(t *testing.T) {
		out, err := extractJSONObject("```json\n{\"a\":1}\n```")
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, out)
	})

	t.Run("SurroundingProse", func(t *testing.T) {
		out, err := extractJSONObject("Here is the analysis:\n{\"a\":{\"b\":2}}\nLet me know if you need more.")
		require.NoError(t, err)
		require.Equal(t, `{"a":{"b":2}}`, out)
	})

	t.Run("BracesInsideStrings", func(t *testing.T) {
		out, err := extractJSONObject(`{"note":"use {caution} here"}`)
		require.NoError(t, err)
		require.Equal(t, `{"note":"use {caution} here"}`, out)
	})

	t.Run("NoObject", func(t *testing.T) {
		_, err := extractJSONObject("I cannot analyze this portfolio.")
		require.Error(t, err)
	})

	t.Run("Unbalanced", func(t *testing.T) {
		_, err := extractJSONObject(`{"a": {"b": 1}`)
		require.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := extractJSONObject("   ")
		require.Error(t, err)
	})
}

func TestDecodeAnalysis(t *testing.T) {
	raw := `{"executive_summary":{"total_investment":1000,"current_value":1100,"total_pnl":100,"total_pnl_percentage":10,"number_of_holdings":2,"risk_level":"Medium"},"key_insights":["balanced"]}`

	analysis, err := decodeAnalysis(raw)
	require.NoError(t, err)
	require.InDelta(t, 1100.0, analysis.Summary.CurrentValue, 0.001)
	require.Equal(t, 2, analysis.Summary.HoldingsCount)
	require.Equal(t, []string{"balanced"}, analysis.KeyInsights)
}

func TestDecodeAnalysisKeepsRawOnFailure(t *testing.T) {
	_, err := decodeAnalysis("the model refused")
	require.Error(t, err)

	var rawErr *RawResponseError
	require.ErrorAs(t, err, &rawErr)
	require.Equal(t, "the model refused", string(rawErr.Raw))
}

func TestDecodeSuggestions(t *testing.T) {
	raw := "```json\n" + `{"immediate_actions":[{"action":"trim INFY","priority":"high"}],"target_allocation":{"equity":70,"debt":30}}` + "\n```"

	suggestions, err := decodeSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, suggestions.ImmediateActions, 1)
	require.Equal(t, "trim INFY", suggestions.ImmediateActions[0].Action)
	require.InDelta(t, 70.0, suggestions.TargetAllocation["equity"], 0.001)
}
