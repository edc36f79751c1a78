package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/core"
)

// PortfolioSource fetches the portfolio snapshot from the brokerage.
type PortfolioSource interface {
	Snapshot(ctx context.Context) (*core.PortfolioSnapshot, error)
}

// Advisor produces analysis and suggestions, typically via a model provider.
type Advisor interface {
	Analyze(ctx context.Context, snapshot *core.PortfolioSnapshot) (*core.Analysis, error)
	Suggest(ctx context.Context, analysis *core.Analysis, prefs *core.Preferences) (*core.SuggestionSet, error)
}

// ReportSink persists an assembled report and returns where it landed.
type ReportSink interface {
	Write(report *core.Report) (*core.ReportRecord, error)
}

// ReportSinkFunc adapts a function to the ReportSink interface.
type ReportSinkFunc func(report *core.Report) (*core.ReportRecord, error)

func (f ReportSinkFunc) Write(report *core.Report) (*core.ReportRecord, error) {
	return f(report)
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Report   *core.Report
	Record   *core.ReportRecord
	Degraded bool
}

// Pipeline wires one end-to-end analysis run. Brokerage failure aborts the
// run; advisor failure degrades to deterministic fallbacks so a report is
// still produced.
type Pipeline struct {
	Portfolio PortfolioSource
	Advisor   Advisor
	Sink      ReportSink
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Run executes fetch, analyze, suggest, and render for the given preferences.
// Preferences may be nil; suggestions then fall back to generic advice only
// if the model also cannot help.
func (p *Pipeline) Run(ctx context.Context, prefs *core.Preferences) (*RunResult, error) {
	if p == nil || p.Portfolio == nil {
		return nil, errors.New("pipeline is not configured")
	}

	snapshot, err := p.Portfolio.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}
	if snapshot == nil || len(snapshot.Holdings) == 0 {
		return nil, errors.New("portfolio has no holdings to analyze")
	}
	p.info("Portfolio fetched", zap.Int("holdings", len(snapshot.Holdings)))

	result := &RunResult{}

	var analysis *core.Analysis
	if p.Advisor != nil {
		analysis, err = p.Advisor.Analyze(ctx, snapshot)
		if err != nil {
			p.warn("Analysis failed, using deterministic fallback", err)
			analysis = nil
		}
	}
	if analysis == nil {
		analysis = core.FallbackAnalysis(snapshot)
		result.Degraded = true
	}

	var suggestions *core.SuggestionSet
	if p.Advisor != nil && !analysis.Fallback {
		suggestions, err = p.Advisor.Suggest(ctx, analysis, prefs)
		if err != nil {
			p.warn("Suggestions failed, using generic fallback", err)
			suggestions = nil
		}
	}
	if suggestions == nil {
		suggestions = core.FallbackSuggestions(prefs)
		result.Degraded = true
	}

	result.Report = &core.Report{
		Preferences: prefs,
		Snapshot:    snapshot,
		Analysis:    analysis,
		Suggestions: suggestions,
		GeneratedAt: p.now(),
	}

	if p.Sink != nil {
		record, err := p.Sink.Write(result.Report)
		if err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		result.Record = record
	}

	return result, nil
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}

func (p *Pipeline) info(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Info(msg, fields...)
	}
}

func (p *Pipeline) warn(msg string, err error) {
	if p.Logger != nil {
		p.Logger.Warn(msg, zap.Error(err))
	}
}
