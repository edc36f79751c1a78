package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliolens/foliolens/internal/core"
	"github.com/foliolens/foliolens/internal/core/engine"
)

type fakeCache struct {
	entries map[string]*core.Analysis
	puts    int
}

func (c *fakeCache) key(hash, model string) string { return hash + "|" + model }

func (c *fakeCache) GetCachedAnalysis(_ context.Context, hash, model string) (*core.Analysis, error) {
	return c.entries[c.key(hash, model)], nil
}

func (c *fakeCache) PutCachedAnalysis(_ context.Context, hash, model string, analysis *core.Analysis, _ time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string]*core.Analysis)
	}
	c.entries[c.key(hash, model)] = analysis
	c.puts++
	return nil
}

func geminiText(t *testing.T, text string) []byte {
	t.Helper()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func testSnapshot() *core.PortfolioSnapshot {
	return &core.PortfolioSnapshot{
		Holdings: []core.Holding{
			{Symbol: "INFY", Sector: "IT", Quantity: 10, AveragePrice: 1500, LastPrice: 1650, PnL: 1500},
			{Symbol: "HDFCBANK", Sector: "Financials", Quantity: 5, AveragePrice: 1600, LastPrice: 1550, PnL: -250},
		},
		FetchedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func newTestService(serverURL string, cache AnalysisCache) *Service {
	policy := engine.DefaultRetryPolicy()
	policy.MinInterval = 0
	policy.MaxAttempts = 1

	return NewService(Config{
		DefaultProvider: "gemini",
		Providers: map[string]ProviderConfig{
			"gemini": {
				Enabled: true,
				Driver:  "gemini",
				BaseURL: serverURL,
				APIKey:  "test-key",
				Model:   "gemini-2.0-flash",
			},
		},
		CacheTTL: time.Hour,
	}, policy, cache, nil)
}

func TestAnalyzeParsesModelResponse(t *testing.T) {
	analysisJSON := `{"executive_summary":{"total_investment":23000,"current_value":24250,"total_pnl":1250,"total_pnl_percentage":5.43,"number_of_holdings":2,"risk_level":"High"},"key_insights":["IT heavy"],"sector_analysis":{"sector_allocation":[{"sector":"IT","percentage":68.04,"value":16500}]}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(geminiText(t, analysisJSON))
	}))
	defer server.Close()

	cache := &fakeCache{}
	svc := newTestService(server.URL, cache)

	analysis, err := svc.Analyze(context.Background(), testSnapshot())
	require.NoError(t, err)
	require.False(t, analysis.Fallback)
	require.Equal(t, 2, analysis.Summary.HoldingsCount)
	require.Equal(t, []string{"IT heavy"}, analysis.KeyInsights)
	require.False(t, analysis.GeneratedAt.IsZero())
	require.Equal(t, 1, cache.puts)
}

func TestAnalyzeFallsBackOnUnusableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(geminiText(t, "I am unable to analyze this portfolio right now."))
	}))
	defer server.Close()

	svc := newTestService(server.URL, nil)

	analysis, err := svc.Analyze(context.Background(), testSnapshot())
	require.NoError(t, err)
	require.True(t, analysis.Fallback)
	require.Equal(t, 2, analysis.Summary.HoldingsCount)
	require.InDelta(t, 24250.0, analysis.Summary.CurrentValue, 0.001)
	require.NotEmpty(t, analysis.Sectors.Allocation)
}

func TestAnalyzeUsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(geminiText(t, `{"executive_summary":{"number_of_holdings":2}}`))
	}))
	defer server.Close()

	cache := &fakeCache{}
	svc := newTestService(server.URL, cache)
	snapshot := testSnapshot()

	_, err := svc.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	// Same market contents, different fetch time: still a cache hit.
	snapshot.FetchedAt = snapshot.FetchedAt.Add(time.Hour)
	_, err = svc.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeSurfacesProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"backend"}}`))
	}))
	defer server.Close()

	svc := newTestService(server.URL, nil)

	_, err := svc.Analyze(context.Background(), testSnapshot())
	require.Error(t, err)

	var cerr *engine.CallError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, engine.KindExhausted, cerr.Kind)
	require.Equal(t, 1, cerr.Attempts)
}

func TestSuggestFallsBackOnUnusableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(geminiText(t, "no structured advice available"))
	}))
	defer server.Close()

	svc := newTestService(server.URL, nil)
	prefs := &core.Preferences{Portfolio: core.PortfolioPreferences{EquityAllocation: 70}}

	suggestions, err := svc.Suggest(context.Background(), &core.Analysis{Summary: core.ExecutiveSummary{HoldingsCount: 2}}, prefs)
	require.NoError(t, err)
	require.True(t, suggestions.Fallback)
	require.NotEmpty(t, suggestions.ImmediateActions)
	require.InDelta(t, 70.0, suggestions.TargetAllocation["equity"], 0.001)
}

func TestSnapshotHashIgnoresFetchTime(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.FetchedAt = b.FetchedAt.Add(48 * time.Hour)
	require.Equal(t, SnapshotHash(a), SnapshotHash(b))

	b.Holdings[0].LastPrice = 1700
	require.NotEqual(t, SnapshotHash(a), SnapshotHash(b))
}

func TestResolveRouting(t *testing.T) {
	registry := NewRegistry(Config{
		DefaultProvider: "gemini",
		Providers: map[string]ProviderConfig{
			"gemini": {Enabled: true, Driver: "gemini", APIKey: "k", Model: "m1"},
			"openai": {Enabled: true, Driver: "openai", APIKey: "k", Model: "m2"},
		},
		Routing: map[string]string{RoleSuggestions: "openai"},
	})

	analysis, err := registry.Resolve(RoleAnalysis)
	require.NoError(t, err)
	require.Equal(t, "gemini", analysis.ProviderID)
	require.Equal(t, "m1", analysis.Model)

	suggest, err := registry.Resolve(RoleSuggestions)
	require.NoError(t, err)
	require.Equal(t, "openai", suggest.ProviderID)

	_, err = registry.Resolve("unknown-role")
	require.NoError(t, err) // falls back to default provider
}

func TestResolveDisabledProviderFails(t *testing.T) {
	registry := NewRegistry(Config{
		DefaultProvider: "gemini",
		Providers: map[string]ProviderConfig{
			"gemini": {Enabled: false, Driver: "gemini", Model: "m"},
		},
	})

	_, err := registry.Resolve(RoleAnalysis)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disabled")
}
