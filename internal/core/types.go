package core

import "time"

// Holding is a long-term holding reported by the brokerage.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange,omitempty"`
	ISIN         string  `json:"isin,omitempty"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
	PnL          float64 `json:"pnl"`
	Sector       string  `json:"sector,omitempty"`
}

// Position is an open (intraday or carried) position.
type Position struct {
	Symbol       string  `json:"symbol"`
	Product      string  `json:"product,omitempty"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
	PnL          float64 `json:"pnl"`
}

// Margins summarizes available account funds.
type Margins struct {
	AvailableCash float64 `json:"available_cash"`
	UsedMargin    float64 `json:"used_margin"`
	Net           float64 `json:"net"`
}

// InvestorProfile identifies the brokerage account owner.
type InvestorProfile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email,omitempty"`
	Broker   string `json:"broker,omitempty"`
}

// PortfolioSnapshot is the aggregate fetched from the brokerage in one pass.
type PortfolioSnapshot struct {
	Profile      *InvestorProfile  `json:"profile,omitempty"`
	Holdings     []Holding         `json:"holdings"`
	NetPositions []Position        `json:"net_positions,omitempty"`
	Margins      *Margins          `json:"margins,omitempty"`
	FetchedAt    time.Time         `json:"fetched_at"`
	DataQuality  map[string]string `json:"data_quality,omitempty"`
}

// BasicInfo captures who the investor is.
type BasicInfo struct {
	Age             int    `json:"age"`
	ExperienceLevel string `json:"experience_level"`
	IncomeRange     string `json:"income_range"`
}

// InvestmentGoals captures objectives and contribution plans.
type InvestmentGoals struct {
	PrimaryGoal     string  `json:"primary_goal"`
	TimeHorizon     string  `json:"time_horizon"`
	ExpectedReturn  float64 `json:"expected_return"`
	MonthlyAddition int64   `json:"monthly_addition"`
	TargetCorpus    int64   `json:"target_corpus"`
}

// RiskPreferences captures tolerance for losses and volatility.
type RiskPreferences struct {
	Tolerance         string  `json:"tolerance"`
	Score             int     `json:"score"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	VolatilityComfort bool    `json:"volatility_comfort"`
}

// PortfolioPreferences captures construction preferences.
type PortfolioPreferences struct {
	EquityAllocation int            `json:"equity_allocation"`
	PreferredSectors []string       `json:"preferred_sectors,omitempty"`
	MarketCapSplit   map[string]int `json:"market_cap_split,omitempty"`
	TargetHoldings   int            `json:"target_holdings"`
}

// Constraints captures budget and restriction limits.
type Constraints struct {
	AdditionalBudget   int64    `json:"additional_budget"`
	LiquidityNeeds     bool     `json:"liquidity_needs"`
	LiquidityFrequency string   `json:"liquidity_frequency,omitempty"`
	LiquidityAmount    int64    `json:"liquidity_amount,omitempty"`
	AvoidSectors       []string `json:"avoid_sectors,omitempty"`
	ExistingAction     string   `json:"existing_action"`
}

// Preferences is the full questionnaire record.
type Preferences struct {
	Basic       BasicInfo            `json:"basic_info"`
	Goals       InvestmentGoals      `json:"investment_goals"`
	Risk        RiskPreferences      `json:"risk_preferences"`
	Portfolio   PortfolioPreferences `json:"portfolio_preferences"`
	Constraints Constraints          `json:"constraints"`
	CollectedAt time.Time            `json:"collected_at"`
}

// PreferenceRecord is a stored questionnaire record.
type PreferenceRecord struct {
	ID          string      `json:"id"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ExecutiveSummary is the headline view of a portfolio analysis.
type ExecutiveSummary struct {
	TotalInvestment float64 `json:"total_investment"`
	CurrentValue    float64 `json:"current_value"`
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percentage"`
	HoldingsCount   int     `json:"number_of_holdings"`
	RiskLevel       string  `json:"risk_level,omitempty"`
}

// HoldingInsight is the per-holding analysis row.
type HoldingInsight struct {
	Symbol         string  `json:"symbol"`
	Sector         string  `json:"sector,omitempty"`
	PnL            float64 `json:"pnl"`
	PnLPercent     float64 `json:"pnl_percentage"`
	Weight         float64 `json:"weight_in_portfolio"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// SectorAllocation is a single slice of the sector breakdown.
type SectorAllocation struct {
	Sector  string  `json:"sector"`
	Percent float64 `json:"percentage"`
	Value   float64 `json:"value"`
}

// SectorAnalysis wraps the sector breakdown.
type SectorAnalysis struct {
	Allocation []SectorAllocation `json:"sector_allocation"`
}

// Analysis is the structured portfolio analysis, either model-produced or
// derived deterministically as a fallback.
type Analysis struct {
	Summary       ExecutiveSummary `json:"executive_summary"`
	Holdings      []HoldingInsight `json:"holdings_analysis,omitempty"`
	Sectors       SectorAnalysis   `json:"sector_analysis"`
	KeyInsights   []string         `json:"key_insights,omitempty"`
	RiskWarnings  []string         `json:"risk_warnings,omitempty"`
	Opportunities []string         `json:"opportunities,omitempty"`
	Fallback      bool             `json:"fallback,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at,omitempty"`
}

// SuggestedAction is a single prioritized recommendation.
type SuggestedAction struct {
	Action    string `json:"action"`
	Priority  string `json:"priority"`
	Timeframe string `json:"timeframe,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// InvestmentIdea is a proposed new position.
type InvestmentIdea struct {
	Symbol     string  `json:"symbol"`
	Sector     string  `json:"sector,omitempty"`
	Allocation float64 `json:"suggested_allocation"`
	Rationale  string  `json:"rationale,omitempty"`
}

// SuggestionSet is the personalized recommendation bundle.
type SuggestionSet struct {
	ImmediateActions []SuggestedAction  `json:"immediate_actions,omitempty"`
	NewIdeas         []InvestmentIdea   `json:"new_investment_ideas,omitempty"`
	RiskManagement   []string           `json:"risk_management,omitempty"`
	TargetAllocation map[string]float64 `json:"target_allocation,omitempty"`
	Timeline         map[string]string  `json:"implementation_timeline,omitempty"`
	Fallback         bool               `json:"fallback,omitempty"`
}

// Report is everything a rendered report is assembled from.
type Report struct {
	Preferences *Preferences       `json:"preferences,omitempty"`
	Snapshot    *PortfolioSnapshot `json:"snapshot"`
	Analysis    *Analysis          `json:"analysis"`
	Suggestions *SuggestionSet     `json:"suggestions,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ReportRecord is a stored report index row.
type ReportRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Format      string    `json:"format"`
	PrimaryGoal string    `json:"primary_goal,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
