package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/advisor/driver"
	"github.com/foliolens/foliolens/internal/core"
	"github.com/foliolens/foliolens/internal/core/engine"
	"github.com/foliolens/foliolens/internal/metrics"
)

// AnalysisCache stores model analyses keyed by snapshot hash and model.
// *store.Store satisfies it; tests supply fakes.
type AnalysisCache interface {
	GetCachedAnalysis(ctx context.Context, snapshotHash, model string) (*core.Analysis, error)
	PutCachedAnalysis(ctx context.Context, snapshotHash, model string, analysis *core.Analysis, ttl time.Duration) error
}

// Service coordinates provider routing, paced model calls, response parsing,
// and deterministic fallbacks.
type Service struct {
	Providers *Registry
	Cache     AnalysisCache
	Logger    *logging.Logger
	Policy    engine.RetryPolicy
	CacheTTL  time.Duration
	Clock     func() time.Time

	mu      sync.Mutex
	callers map[string]*engine.Caller
}

// NewService builds a service over the given advisor configuration.
func NewService(cfg Config, policy engine.RetryPolicy, cache AnalysisCache, logger *logging.Logger) *Service {
	return &Service{
		Providers: NewRegistry(cfg),
		Cache:     cache,
		Logger:    logger,
		Policy:    policy,
		CacheTTL:  cfg.CacheTTL,
	}
}

// Analyze produces a structured portfolio analysis. A model payload that
// cannot be parsed degrades to the deterministic fallback; a failed provider
// call surfaces as an error so the caller decides how to proceed.
func (s *Service) Analyze(ctx context.Context, snapshot *core.PortfolioSnapshot) (*core.Analysis, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("advisor service not configured")
	}
	if snapshot == nil || len(snapshot.Holdings) == 0 {
		return nil, errors.New("snapshot with holdings is required")
	}

	resolved, err := s.Providers.Resolve(RoleAnalysis)
	if err != nil {
		return nil, err
	}

	hash := SnapshotHash(snapshot)
	if s.Cache != nil {
		cached, err := s.Cache.GetCachedAnalysis(ctx, hash, resolved.Model)
		if err != nil {
			s.warn("Analysis cache lookup failed", err)
		} else if cached != nil {
			s.debug("Analysis cache hit", zap.String("model", resolved.Model))
			metrics.RecordCacheLookup(true)
			return cached, nil
		} else {
			metrics.RecordCacheLookup(false)
		}
	}

	messages, err := analysisMessages(snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := s.call(ctx, resolved, "analyze", messages)
	if err != nil {
		return nil, err
	}

	analysis, err := decodeAnalysis(resp.Text)
	if err != nil {
		s.warn("Analysis response unusable, using deterministic fallback", err)
		return core.FallbackAnalysis(snapshot), nil
	}

	s.normalizeAnalysis(analysis, snapshot)

	if s.Cache != nil {
		if err := s.Cache.PutCachedAnalysis(ctx, hash, resolved.Model, analysis, s.CacheTTL); err != nil {
			s.warn("Analysis cache store failed", err)
		}
	}

	return analysis, nil
}

// Suggest produces personalized recommendations from an analysis and the
// investor's preferences. Parse failures degrade to generic suggestions.
func (s *Service) Suggest(ctx context.Context, analysis *core.Analysis, prefs *core.Preferences) (*core.SuggestionSet, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("advisor service not configured")
	}
	if analysis == nil {
		return nil, errors.New("analysis is required")
	}

	resolved, err := s.Providers.Resolve(RoleSuggestions)
	if err != nil {
		return nil, err
	}

	messages, err := suggestionMessages(analysis, prefs)
	if err != nil {
		return nil, err
	}

	resp, err := s.call(ctx, resolved, "suggest", messages)
	if err != nil {
		return nil, err
	}

	suggestions, err := decodeSuggestions(resp.Text)
	if err != nil {
		s.warn("Suggestion response unusable, using generic fallback", err)
		return core.FallbackSuggestions(prefs), nil
	}

	return suggestions, nil
}

// call runs one paced provider call and records its outcome.
func (s *Service) call(ctx context.Context, resolved *ResolvedProvider, operation string, messages []driver.Message) (*driver.Response, error) {
	start := time.Now()
	resp, err := s.callerFor(resolved).Call(ctx, &engine.CallRequest{
		Operation: operation,
		Request:   s.buildRequest(resolved, messages),
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordProviderCall(resolved.ProviderID, operation, outcome, time.Since(start))
	return resp, err
}

func (s *Service) buildRequest(resolved *ResolvedProvider, messages []driver.Message) *driver.Request {
	return &driver.Request{
		Model:          resolved.Model,
		Messages:       messages,
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
		Temperature:    resolved.Provider.Temperature,
		MaxTokens:      resolved.Provider.MaxTokens,
	}
}

// callerFor returns the pacing caller for a provider. Roles routed to the
// same provider share one caller, so the minimum call interval holds across
// analyze and suggest against the same quota.
func (s *Service) callerFor(resolved *ResolvedProvider) *engine.Caller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callers == nil {
		s.callers = make(map[string]*engine.Caller)
	}
	if caller, ok := s.callers[resolved.ProviderID]; ok {
		return caller
	}

	caller := &engine.Caller{
		Driver: resolved.Driver,
		Policy: s.Policy,
		Logger: s.Logger,
		Clock:  s.Clock,
	}
	s.callers[resolved.ProviderID] = caller
	return caller
}

func (s *Service) normalizeAnalysis(analysis *core.Analysis, snapshot *core.PortfolioSnapshot) {
	if analysis.Summary.HoldingsCount == 0 && analysis.Summary.CurrentValue == 0 {
		analysis.Summary = core.ComputeSummary(snapshot.Holdings)
	}
	if len(analysis.Sectors.Allocation) == 0 {
		analysis.Sectors = core.SectorAnalysis{Allocation: core.SectorBreakdown(snapshot.Holdings)}
	}
	if analysis.GeneratedAt.IsZero() {
		analysis.GeneratedAt = s.now()
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) warn(msg string, err error) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.Error(err))
	}
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}

// SnapshotHash derives a stable identity for a portfolio snapshot from its
// market-facing contents. FetchedAt is excluded so refetching unchanged data
// hits the cache.
func SnapshotHash(snapshot *core.PortfolioSnapshot) string {
	if snapshot == nil {
		return ""
	}

	view := struct {
		Holdings  []core.Holding  `json:"holdings"`
		Positions []core.Position `json:"positions,omitempty"`
		Margins   *core.Margins   `json:"margins,omitempty"`
	}{
		Holdings:  snapshot.Holdings,
		Positions: snapshot.NetPositions,
		Margins:   snapshot.Margins,
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
