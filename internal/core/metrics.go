package core

import (
	"sort"
	"strings"
)

const unknownSector = "Unknown"

// ComputeSummary derives the headline metrics from raw holdings.
func ComputeSummary(holdings []Holding) ExecutiveSummary {
	summary := ExecutiveSummary{HoldingsCount: len(holdings)}

	for _, h := range holdings {
		qty := float64(h.Quantity)
		summary.TotalInvestment += h.AveragePrice * qty
		summary.CurrentValue += h.LastPrice * qty
	}

	summary.TotalPnL = summary.CurrentValue - summary.TotalInvestment
	if summary.TotalInvestment > 0 {
		summary.TotalPnLPercent = summary.TotalPnL / summary.TotalInvestment * 100
	}
	summary.RiskLevel = riskLevel(len(holdings))

	return summary
}

// HoldingInsights derives per-holding rows with portfolio weights.
func HoldingInsights(holdings []Holding) []HoldingInsight {
	if len(holdings) == 0 {
		return nil
	}

	var currentValue float64
	for _, h := range holdings {
		currentValue += h.LastPrice * float64(h.Quantity)
	}

	insights := make([]HoldingInsight, 0, len(holdings))
	for _, h := range holdings {
		invested := h.AveragePrice * float64(h.Quantity)
		value := h.LastPrice * float64(h.Quantity)
		insight := HoldingInsight{
			Symbol: h.Symbol,
			Sector: sectorOrUnknown(h.Sector),
			PnL:    value - invested,
		}
		if invested > 0 {
			insight.PnLPercent = (value - invested) / invested * 100
		}
		if currentValue > 0 {
			insight.Weight = value / currentValue * 100
		}
		insights = append(insights, insight)
	}

	return insights
}

// SectorBreakdown aggregates current value by sector, largest first.
func SectorBreakdown(holdings []Holding) []SectorAllocation {
	if len(holdings) == 0 {
		return nil
	}

	var total float64
	values := map[string]float64{}
	for _, h := range holdings {
		value := h.LastPrice * float64(h.Quantity)
		values[sectorOrUnknown(h.Sector)] += value
		total += value
	}

	allocations := make([]SectorAllocation, 0, len(values))
	for sector, value := range values {
		alloc := SectorAllocation{Sector: sector, Value: value}
		if total > 0 {
			alloc.Percent = value / total * 100
		}
		allocations = append(allocations, alloc)
	}

	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].Value == allocations[j].Value {
			return allocations[i].Sector < allocations[j].Sector
		}
		return allocations[i].Value > allocations[j].Value
	})

	return allocations
}

// YearsToTarget estimates years to reach a target corpus given the current
// value and planned contributions. Returns 0 when already at target and -1
// when the target is unreachable with the given plan.
func YearsToTarget(target int64, currentValue float64, monthlyAddition, lumpSum int64) float64 {
	gap := float64(target) - currentValue - float64(lumpSum)
	if gap <= 0 {
		return 0
	}
	perYear := float64(monthlyAddition) * 12
	if perYear <= 0 {
		return -1
	}
	return gap / perYear
}

func riskLevel(holdingsCount int) string {
	switch {
	case holdingsCount == 0:
		return "Unknown"
	case holdingsCount < 3:
		return "High"
	case holdingsCount < 6:
		return "Medium"
	default:
		return "Low"
	}
}

func sectorOrUnknown(sector string) string {
	if strings.TrimSpace(sector) == "" {
		return unknownSector
	}
	return sector
}
