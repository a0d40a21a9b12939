package replenishment

import (
	"testing"
	"time"

	"dmis/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dispatch(asOf time.Time, hoursAgo float64, qty int64) models.DispatchEvent {
	return models.DispatchEvent{
		ID:           uuid.New(),
		Quantity:     decimal.NewFromInt(qty),
		DispatchedAt: asOf.Add(-time.Duration(hoursAgo * float64(time.Hour))),
	}
}

func TestBurnRateCalculator_Calculate(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()
	calc := NewBurnRateCalculator(policy)
	surge := policy.Phases[models.PhaseSurge]

	t.Run("calculated over the demand window", func(t *testing.T) {
		events := []models.DispatchEvent{
			dispatch(asOf, 1, 100),
			dispatch(asOf, 3, 200),
			dispatch(asOf, 10, 5000), // outside the six hour window
		}
		br := calc.Calculate(events, models.PhaseSurge, surge, models.FreshnessHigh, asOf)
		assert.Equal(t, models.BurnRateCalculated, br.Source)
		assert.True(t, decimal.NewFromInt(50).Equal(br.Rate), "got %s", br.Rate)
		assert.Equal(t, 6, br.WindowHours)
		assert.Equal(t, 2, br.EventCount)
		assert.Empty(t, br.FallbackReason)
	})

	t.Run("window start is exclusive and as-of is inclusive", func(t *testing.T) {
		events := []models.DispatchEvent{
			dispatch(asOf, 6, 600),
			dispatch(asOf, 0, 60),
		}
		br := calc.Calculate(events, models.PhaseSurge, surge, models.FreshnessMedium, asOf)
		assert.Equal(t, models.BurnRateCalculated, br.Source)
		assert.True(t, decimal.NewFromInt(10).Equal(br.Rate), "got %s", br.Rate)
	})

	t.Run("no dispatches in window falls back to baseline", func(t *testing.T) {
		events := []models.DispatchEvent{dispatch(asOf, 100, 720)}
		br := calc.Calculate(events, models.PhaseSurge, surge, models.FreshnessHigh, asOf)
		assert.Equal(t, models.BurnRateBaseline, br.Source)
		assert.Equal(t, FallbackNoDispatches, br.FallbackReason)
		assert.True(t, decimal.NewFromInt(1).Equal(br.Rate), "got %s", br.Rate)
		assert.Equal(t, 720, br.WindowHours)
	})

	t.Run("low or stale freshness always uses baseline", func(t *testing.T) {
		events := []models.DispatchEvent{dispatch(asOf, 1, 7200)}
		for _, tier := range []models.FreshnessTier{models.FreshnessLow, models.FreshnessStale} {
			br := calc.Calculate(events, models.PhaseSurge, surge, tier, asOf)
			assert.Equal(t, models.BurnRateBaseline, br.Source, tier)
			assert.Equal(t, FallbackUntrustedData, br.FallbackReason)
			assert.True(t, decimal.NewFromInt(10).Equal(br.Rate), "got %s", br.Rate)
		}
	})

	t.Run("no history at all yields a zero baseline", func(t *testing.T) {
		br := calc.Calculate(nil, models.PhaseSurge, surge, models.FreshnessHigh, asOf)
		assert.Equal(t, models.BurnRateBaseline, br.Source)
		assert.True(t, br.Rate.IsZero())
		assert.Equal(t, 0, br.EventCount)
	})

	t.Run("baseline phase uses the long-run average even with fresh data", func(t *testing.T) {
		p := DefaultPolicy()
		p.Phases[models.PhaseBaseline] = PhaseWindows{DemandWindowHours: 168, PlanningWindowHours: 720}
		events := []models.DispatchEvent{
			dispatch(asOf, 10, 168),
			dispatch(asOf, 500, 1000),
		}
		br := NewBurnRateCalculator(p).Calculate(events, models.PhaseBaseline, p.Phases[models.PhaseBaseline], models.FreshnessHigh, asOf)
		assert.Equal(t, models.BurnRateBaseline, br.Source)
		assert.Equal(t, BaselinePhase, br.FallbackReason)
		assert.Equal(t, 720, br.WindowHours)
		assert.Equal(t, 2, br.EventCount)
		assert.True(t, decimal.RequireFromString("1.6222").Equal(br.Rate), "got %s", br.Rate)
	})
}
