package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliolens/foliolens/internal/core"
)

type fakeSource struct {
	snapshot *core.PortfolioSnapshot
	err      error
}

func (f *fakeSource) Snapshot(ctx context.Context) (*core.PortfolioSnapshot, error) {
	return f.snapshot, f.err
}

type fakeAdvisor struct {
	analysis    *core.Analysis
	analyzeErr  error
	suggestions *core.SuggestionSet
	suggestErr  error

	suggestCalls int
}

func (f *fakeAdvisor) Analyze(ctx context.Context, snapshot *core.PortfolioSnapshot) (*core.Analysis, error) {
	return f.analysis, f.analyzeErr
}

func (f *fakeAdvisor) Suggest(ctx context.Context, analysis *core.Analysis, prefs *core.Preferences) (*core.SuggestionSet, error) {
	f.suggestCalls++
	return f.suggestions, f.suggestErr
}

func pipelineSnapshot() *core.PortfolioSnapshot {
	return &core.PortfolioSnapshot{
		Holdings: []core.Holding{
			{Symbol: "INFY", Quantity: 10, AveragePrice: 1400, LastPrice: 1500, PnL: 1000, Sector: "IT"},
			{Symbol: "HDFCBANK", Quantity: 5, AveragePrice: 1500, LastPrice: 1450, PnL: -250, Sector: "Banking"},
		},
		FetchedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func modelAnalysis() *core.Analysis {
	return &core.Analysis{
		Summary:     core.ExecutiveSummary{TotalInvestment: 21500, CurrentValue: 22250, HoldingsCount: 2},
		KeyInsights: []string{"IT concentration is moderate"},
	}
}

func TestRunProducesReport(t *testing.T) {
	advisor := &fakeAdvisor{
		analysis:    modelAnalysis(),
		suggestions: &core.SuggestionSet{RiskManagement: []string{"Keep 6 months of expenses liquid"}},
	}

	var written *core.Report
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: pipelineSnapshot()},
		Advisor:   advisor,
		Sink: ReportSinkFunc(func(report *core.Report) (*core.ReportRecord, error) {
			written = report
			return &core.ReportRecord{ID: "r1", Filename: "report.md"}, nil
		}),
		Clock: func() time.Time { return now },
	}

	result, err := p.Run(context.Background(), &core.Preferences{})
	require.NoError(t, err)
	require.False(t, result.Degraded)
	require.NotNil(t, result.Record)
	require.Equal(t, "r1", result.Record.ID)
	require.Same(t, written, result.Report)
	require.Equal(t, now, result.Report.GeneratedAt)
	require.Equal(t, advisor.analysis, result.Report.Analysis)
	require.Equal(t, advisor.suggestions, result.Report.Suggestions)
}

func TestRunAbortsWhenPortfolioFails(t *testing.T) {
	p := &Pipeline{
		Portfolio: &fakeSource{err: errors.New("network down")},
		Advisor:   &fakeAdvisor{},
	}

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch portfolio")
}

func TestRunRejectsEmptyPortfolio(t *testing.T) {
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: &core.PortfolioSnapshot{}},
	}

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no holdings")
}

func TestRunDegradesWhenAnalysisFails(t *testing.T) {
	advisor := &fakeAdvisor{analyzeErr: errors.New("provider unavailable")}
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: pipelineSnapshot()},
		Advisor:   advisor,
	}

	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.True(t, result.Report.Analysis.Fallback)
	require.True(t, result.Report.Suggestions.Fallback)
	require.Equal(t, 2, result.Report.Analysis.Summary.HoldingsCount)
	// A fallback analysis never goes back to the model for suggestions.
	require.Equal(t, 0, advisor.suggestCalls)
}

func TestRunDegradesWhenSuggestionsFail(t *testing.T) {
	advisor := &fakeAdvisor{
		analysis:   modelAnalysis(),
		suggestErr: errors.New("provider unavailable"),
	}
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: pipelineSnapshot()},
		Advisor:   advisor,
	}

	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.False(t, result.Report.Analysis.Fallback)
	require.True(t, result.Report.Suggestions.Fallback)
	require.Equal(t, 1, advisor.suggestCalls)
}

func TestRunFailsWhenSinkFails(t *testing.T) {
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: pipelineSnapshot()},
		Advisor:   &fakeAdvisor{analysis: modelAnalysis(), suggestions: &core.SuggestionSet{}},
		Sink: ReportSinkFunc(func(report *core.Report) (*core.ReportRecord, error) {
			return nil, errors.New("disk full")
		}),
	}

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "write report")
}

func TestRunWithoutAdvisorUsesFallbacks(t *testing.T) {
	p := &Pipeline{
		Portfolio: &fakeSource{snapshot: pipelineSnapshot()},
	}

	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.True(t, result.Report.Analysis.Fallback)
	require.True(t, result.Report.Suggestions.Fallback)
	require.Nil(t, result.Record)
}
