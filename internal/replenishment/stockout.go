package replenishment

import (
	"math"

	"dmis/internal/models"

	"github.com/shopspring/decimal"
)

// Projection is the stockout outlook for one item at one warehouse.
type Projection struct {
	Available decimal.Decimal
	Inbound   decimal.Decimal
	Coverage  decimal.Decimal
	Required  decimal.Decimal
	Gap       decimal.Decimal
	// TimeToStockoutHours is +Inf when the burn rate is zero.
	TimeToStockoutHours float64
	Severity            models.Severity
}

// Surplus is what the warehouse holds beyond its own requirement.
func (p Projection) Surplus() decimal.Decimal {
	s := p.Available.Sub(p.Required)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// StockoutHours returns time to stockout as stored on a line, nil meaning never.
func (p Projection) StockoutHours() *float64 {
	if math.IsInf(p.TimeToStockoutHours, 1) {
		return nil
	}
	h := p.TimeToStockoutHours
	return &h
}

// Project computes coverage, requirement and gap for one position.
//
//	available = max(0, usable - reserved)
//	required  = burn * planning window * safety buffer
//	gap       = max(0, required - (available + inbound))
func Project(position models.StockPosition, pipeline models.InboundPipeline, burn decimal.Decimal, windows PhaseWindows, policy Policy) Projection {
	available := position.Available()
	inbound := pipeline.Total()
	coverage := available.Add(inbound)
	required := burn.Mul(decimal.NewFromInt(int64(windows.PlanningWindowHours))).Mul(policy.SafetyBuffer)

	gap := required.Sub(coverage)
	if gap.IsNegative() {
		gap = decimal.Zero
	}

	tts := TimeToStockout(available, burn)
	return Projection{
		Available:           available,
		Inbound:             inbound,
		Coverage:            coverage,
		Required:            required,
		Gap:                 gap,
		TimeToStockoutHours: tts,
		Severity:            ClassifySeverity(tts, windows.DemandWindowHours, policy.Severity),
	}
}

// TimeToStockout is available / burn in hours, +Inf when nothing is consumed.
func TimeToStockout(available, burn decimal.Decimal) float64 {
	if !burn.IsPositive() {
		return math.Inf(1)
	}
	hours, _ := available.Div(burn).Float64()
	return hours
}

// ClassifySeverity buckets time to stockout against multiples of the demand
// window. Shorter times never yield a less urgent severity.
func ClassifySeverity(ttsHours float64, demandWindowHours int, b SeverityBreakpoints) models.Severity {
	w := float64(demandWindowHours)
	switch {
	case ttsHours <= b.Critical*w:
		return models.SeverityCritical
	case ttsHours <= b.Warning*w:
		return models.SeverityWarning
	case ttsHours <= b.Watch*w:
		return models.SeverityWatch
	default:
		return models.SeverityOK
	}
}
