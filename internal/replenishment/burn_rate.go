package replenishment

import (
	"time"

	"dmis/internal/models"

	"github.com/shopspring/decimal"
)

// Reasons a burn rate fell back to the historical baseline.
const (
	FallbackUntrustedData = "untrusted_data"
	FallbackNoDispatches  = "no_recent_dispatches"
	// BaselinePhase marks a rate that is the long-run average because the
	// event is in its BASELINE phase. It is not a degradation.
	BaselinePhase = "baseline_phase"
)

// BurnRate is an item's consumption per hour at one warehouse.
type BurnRate struct {
	Rate           decimal.Decimal
	Source         models.BurnRateSource
	WindowHours    int
	EventCount     int
	FallbackReason string
}

// BurnRateCalculator derives burn rates from dispatch history.
type BurnRateCalculator struct {
	policy Policy
}

func NewBurnRateCalculator(policy Policy) *BurnRateCalculator {
	return &BurnRateCalculator{policy: policy}
}

// Calculate returns units per hour over the phase's demand window. When the
// warehouse's data cannot be trusted, or nothing was dispatched in the
// window, it falls back to the average over the baseline lookback. The
// BASELINE phase always uses that long-run average.
// dispatches may include events outside either window; they are ignored.
func (c *BurnRateCalculator) Calculate(dispatches []models.DispatchEvent, phase models.EventPhase, windows PhaseWindows, tier models.FreshnessTier, asOf time.Time) BurnRate {
	if phase == models.PhaseBaseline {
		return c.baseline(dispatches, asOf, BaselinePhase)
	}
	if tier.Trusted() {
		sum, n := sumWindow(dispatches, asOf, windows.DemandWindowHours)
		if n > 0 {
			return BurnRate{
				Rate:        perHour(sum, windows.DemandWindowHours),
				Source:      models.BurnRateCalculated,
				WindowHours: windows.DemandWindowHours,
				EventCount:  n,
			}
		}
		return c.baseline(dispatches, asOf, FallbackNoDispatches)
	}
	return c.baseline(dispatches, asOf, FallbackUntrustedData)
}

func (c *BurnRateCalculator) baseline(dispatches []models.DispatchEvent, asOf time.Time, reason string) BurnRate {
	lookback := c.policy.BaselineLookbackHours
	sum, n := sumWindow(dispatches, asOf, lookback)
	return BurnRate{
		Rate:           perHour(sum, lookback),
		Source:         models.BurnRateBaseline,
		WindowHours:    lookback,
		EventCount:     n,
		FallbackReason: reason,
	}
}

// sumWindow totals dispatches in (asOf-hours, asOf].
func sumWindow(dispatches []models.DispatchEvent, asOf time.Time, hours int) (decimal.Decimal, int) {
	start := asOf.Add(-time.Duration(hours) * time.Hour)
	sum := decimal.Zero
	n := 0
	for _, d := range dispatches {
		if d.DispatchedAt.After(start) && !d.DispatchedAt.After(asOf) {
			sum = sum.Add(d.Quantity)
			n++
		}
	}
	return sum, n
}

func perHour(sum decimal.Decimal, hours int) decimal.Decimal {
	if hours <= 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(hours)), 4)
}
