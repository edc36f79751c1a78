// Package questionnaire collects investor preferences through an interactive
// terminal flow. Input and output are injected so the flow is scriptable and
// testable; empty answers accept the shown default.
package questionnaire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/foliolens/foliolens/internal/core"
)

// Questionnaire drives the preference collection flow.
type Questionnaire struct {
	Out   io.Writer
	Clock func() time.Time

	scanner *bufio.Scanner
}

// New returns a questionnaire reading answers from in and prompting on out.
func New(in io.Reader, out io.Writer) *Questionnaire {
	return &Questionnaire{
		Out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// Run walks through all five sections and returns the collected preferences.
func (q *Questionnaire) Run() (*core.Preferences, error) {
	q.printf("\nInvestment Preferences Questionnaire\n")
	q.printf("Press Enter to accept the default shown in brackets.\n")

	prefs := &core.Preferences{}

	var err error
	if prefs.Basic, err = q.collectBasic(); err != nil {
		return nil, err
	}
	if prefs.Goals, err = q.collectGoals(); err != nil {
		return nil, err
	}
	if prefs.Risk, err = q.collectRisk(); err != nil {
		return nil, err
	}
	if prefs.Portfolio, err = q.collectPortfolio(); err != nil {
		return nil, err
	}
	if prefs.Constraints, err = q.collectConstraints(); err != nil {
		return nil, err
	}

	prefs.CollectedAt = q.now()
	return prefs, nil
}

func (q *Questionnaire) collectBasic() (core.BasicInfo, error) {
	q.printf("\n-- About you --\n")

	age, err := q.askInt("Your age", 30, 18, 100)
	if err != nil {
		return core.BasicInfo{}, err
	}
	experience, err := q.askChoice("Investment experience", []string{"beginner", "intermediate", "advanced"}, "intermediate")
	if err != nil {
		return core.BasicInfo{}, err
	}
	income, err := q.askChoice("Annual income range (INR)", []string{"<5L", "5-10L", "10-25L", "25L+"}, "10-25L")
	if err != nil {
		return core.BasicInfo{}, err
	}

	return core.BasicInfo{Age: age, ExperienceLevel: experience, IncomeRange: income}, nil
}

func (q *Questionnaire) collectGoals() (core.InvestmentGoals, error) {
	q.printf("\n-- Investment goals --\n")

	goal, err := q.askChoice("Primary goal", []string{"wealth_creation", "retirement", "income", "capital_preservation"}, "wealth_creation")
	if err != nil {
		return core.InvestmentGoals{}, err
	}
	horizon, err := q.askChoice("Time horizon", []string{"<1y", "1-3y", "3-5y", "5-10y", "10y+"}, "5-10y")
	if err != nil {
		return core.InvestmentGoals{}, err
	}
	expectedReturn, err := q.askFloat("Expected annual return (%)", 12, 0, 100)
	if err != nil {
		return core.InvestmentGoals{}, err
	}
	monthly, err := q.askInt64("Planned monthly addition (INR)", 0, 0)
	if err != nil {
		return core.InvestmentGoals{}, err
	}
	target, err := q.askInt64("Target corpus (INR, 0 to skip)", 0, 0)
	if err != nil {
		return core.InvestmentGoals{}, err
	}

	return core.InvestmentGoals{
		PrimaryGoal:     goal,
		TimeHorizon:     horizon,
		ExpectedReturn:  expectedReturn,
		MonthlyAddition: monthly,
		TargetCorpus:    target,
	}, nil
}

func (q *Questionnaire) collectRisk() (core.RiskPreferences, error) {
	q.printf("\n-- Risk profile --\n")

	tolerance, err := q.askChoice("Risk tolerance", []string{"conservative", "moderate", "aggressive"}, "moderate")
	if err != nil {
		return core.RiskPreferences{}, err
	}
	drawdown, err := q.askFloat("Maximum acceptable drawdown (%)", 20, 0, 100)
	if err != nil {
		return core.RiskPreferences{}, err
	}
	comfort, err := q.askBool("Comfortable with short-term volatility", tolerance != "conservative")
	if err != nil {
		return core.RiskPreferences{}, err
	}

	return core.RiskPreferences{
		Tolerance:         tolerance,
		Score:             riskScore(tolerance, comfort),
		MaxDrawdown:       drawdown,
		VolatilityComfort: comfort,
	}, nil
}

func (q *Questionnaire) collectPortfolio() (core.PortfolioPreferences, error) {
	q.printf("\n-- Portfolio construction --\n")

	equity, err := q.askInt("Equity allocation (%)", 70, 0, 100)
	if err != nil {
		return core.PortfolioPreferences{}, err
	}
	sectors, err := q.askList("Preferred sectors (comma separated, blank for none)")
	if err != nil {
		return core.PortfolioPreferences{}, err
	}
	large, err := q.askInt("Large cap share (%)", 60, 0, 100)
	if err != nil {
		return core.PortfolioPreferences{}, err
	}
	mid, err := q.askInt("Mid cap share (%)", 30, 0, 100)
	if err != nil {
		return core.PortfolioPreferences{}, err
	}
	small := 100 - large - mid
	if small < 0 {
		small = 0
	}
	holdings, err := q.askInt("Target number of holdings", 15, 1, 100)
	if err != nil {
		return core.PortfolioPreferences{}, err
	}

	return core.PortfolioPreferences{
		EquityAllocation: equity,
		PreferredSectors: sectors,
		MarketCapSplit:   map[string]int{"large": large, "mid": mid, "small": small},
		TargetHoldings:   holdings,
	}, nil
}

func (q *Questionnaire) collectConstraints() (core.Constraints, error) {
	q.printf("\n-- Constraints --\n")

	budget, err := q.askInt64("Additional investment budget (INR)", 0, 0)
	if err != nil {
		return core.Constraints{}, err
	}
	liquidity, err := q.askBool("Regular liquidity needs", false)
	if err != nil {
		return core.Constraints{}, err
	}

	constraints := core.Constraints{
		AdditionalBudget: budget,
		LiquidityNeeds:   liquidity,
	}

	if liquidity {
		frequency, err := q.askChoice("Liquidity frequency", []string{"monthly", "quarterly", "yearly"}, "monthly")
		if err != nil {
			return core.Constraints{}, err
		}
		amount, err := q.askInt64("Liquidity amount (INR)", 0, 0)
		if err != nil {
			return core.Constraints{}, err
		}
		constraints.LiquidityFrequency = frequency
		constraints.LiquidityAmount = amount
	}

	avoid, err := q.askList("Sectors to avoid (comma separated, blank for none)")
	if err != nil {
		return core.Constraints{}, err
	}
	action, err := q.askChoice("Existing holdings", []string{"hold", "rebalance", "exit_losers"}, "hold")
	if err != nil {
		return core.Constraints{}, err
	}

	constraints.AvoidSectors = avoid
	constraints.ExistingAction = action
	return constraints, nil
}

func riskScore(tolerance string, volatilityComfort bool) int {
	score := 6
	switch tolerance {
	case "conservative":
		score = 3
	case "aggressive":
		score = 9
	}
	if volatilityComfort && score < 10 {
		score++
	}
	return score
}

func (q *Questionnaire) readLine() (string, error) {
	if q.scanner == nil {
		return "", io.EOF
	}
	if !q.scanner.Scan() {
		if err := q.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(q.scanner.Text()), nil
}

func (q *Questionnaire) askString(prompt, def string) (string, error) {
	q.printf("%s [%s]: ", prompt, def)
	line, err := q.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (q *Questionnaire) askChoice(prompt string, options []string, def string) (string, error) {
	for {
		answer, err := q.askString(prompt+" ("+strings.Join(options, "/")+")", def)
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		for _, option := range options {
			if answer == option {
				return option, nil
			}
		}
		q.printf("Please answer one of: %s\n", strings.Join(options, ", "))
	}
}

func (q *Questionnaire) askInt(prompt string, def, min, max int) (int, error) {
	for {
		answer, err := q.askString(prompt, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		value, err := strconv.Atoi(answer)
		if err != nil || value < min || value > max {
			q.printf("Please enter a number between %d and %d\n", min, max)
			continue
		}
		return value, nil
	}
}

func (q *Questionnaire) askInt64(prompt string, def, min int64) (int64, error) {
	for {
		answer, err := q.askString(prompt, strconv.FormatInt(def, 10))
		if err != nil {
			return 0, err
		}
		value, err := strconv.ParseInt(answer, 10, 64)
		if err != nil || value < min {
			q.printf("Please enter a whole number of at least %d\n", min)
			continue
		}
		return value, nil
	}
}

func (q *Questionnaire) askFloat(prompt string, def, min, max float64) (float64, error) {
	for {
		answer, err := q.askString(prompt, strconv.FormatFloat(def, 'f', -1, 64))
		if err != nil {
			return 0, err
		}
		value, err := strconv.ParseFloat(answer, 64)
		if err != nil || value < min || value > max {
			q.printf("Please enter a number between %.0f and %.0f\n", min, max)
			continue
		}
		return value, nil
	}
}

func (q *Questionnaire) askBool(prompt string, def bool) (bool, error) {
	defLabel := "y"
	if !def {
		defLabel = "n"
	}
	for {
		answer, err := q.askString(prompt+" (y/n)", defLabel)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes", "true":
			return true, nil
		case "n", "no", "false":
			return false, nil
		}
		q.printf("Please answer y or n\n")
	}
}

func (q *Questionnaire) askList(prompt string) ([]string, error) {
	q.printf("%s: ", prompt)
	line, err := q.readLine()
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}

	parts := strings.Split(line, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items, nil
}

func (q *Questionnaire) printf(format string, args ...any) {
	if q.Out != nil {
		fmt.Fprintf(q.Out, format, args...)
	}
}

func (q *Questionnaire) now() time.Time {
	if q.Clock != nil {
		return q.Clock()
	}
	return time.Now().UTC()
}
