package replenishment

import (
	"math"
	"testing"

	"dmis/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_CriticalScenario(t *testing.T) {
	policy := DefaultPolicy()
	position := models.StockPosition{UsableQty: decimal.NewFromInt(200), ReservedQty: decimal.Zero}
	burn := decimal.NewFromInt(50)

	t.Run("equal demand and planning windows", func(t *testing.T) {
		p := Project(position, models.InboundPipeline{}, burn, PhaseWindows{DemandWindowHours: 72, PlanningWindowHours: 72}, policy)
		assert.True(t, decimal.NewFromInt(4500).Equal(p.Required), "got %s", p.Required)
		assert.True(t, decimal.NewFromInt(4300).Equal(p.Gap), "got %s", p.Gap)
		assert.InDelta(t, 4.0, p.TimeToStockoutHours, 1e-9)
		assert.Equal(t, models.SeverityCritical, p.Severity)
	})

	t.Run("doubled planning window", func(t *testing.T) {
		p := Project(position, models.InboundPipeline{}, burn, PhaseWindows{DemandWindowHours: 72, PlanningWindowHours: 144}, policy)
		assert.True(t, decimal.NewFromInt(9000).Equal(p.Required), "got %s", p.Required)
		assert.True(t, decimal.NewFromInt(200).Equal(p.Coverage))
		assert.True(t, decimal.NewFromInt(8800).Equal(p.Gap), "got %s", p.Gap)
		assert.Equal(t, models.SeverityCritical, p.Severity)
	})
}

func TestProject_CoverageAndClamping(t *testing.T) {
	policy := DefaultPolicy()
	windows := PhaseWindows{DemandWindowHours: 6, PlanningWindowHours: 72}

	position := models.StockPosition{UsableQty: decimal.NewFromInt(100), ReservedQty: decimal.NewFromInt(40)}
	pipeline := models.InboundPipeline{
		TransferQty:    decimal.NewFromInt(10),
		DonationQty:    decimal.NewFromInt(20),
		ProcurementQty: decimal.NewFromInt(30),
	}

	p := Project(position, pipeline, decimal.NewFromInt(1), windows, policy)
	assert.True(t, decimal.NewFromInt(60).Equal(p.Available))
	assert.True(t, decimal.NewFromInt(120).Equal(p.Coverage))
	assert.True(t, decimal.NewFromInt(90).Equal(p.Required))
	assert.True(t, p.Gap.IsZero(), "gap is clamped at zero, got %s", p.Gap)
	assert.True(t, p.Surplus().IsZero())

	overReserved := models.StockPosition{UsableQty: decimal.NewFromInt(10), ReservedQty: decimal.NewFromInt(25)}
	p = Project(overReserved, models.InboundPipeline{}, decimal.NewFromInt(1), windows, policy)
	assert.True(t, p.Available.IsZero())
}

func TestProject_ZeroBurnNeverStocksOut(t *testing.T) {
	p := Project(models.StockPosition{UsableQty: decimal.NewFromInt(5)}, models.InboundPipeline{}, decimal.Zero, PhaseWindows{6, 72}, DefaultPolicy())
	assert.True(t, math.IsInf(p.TimeToStockoutHours, 1))
	assert.Nil(t, p.StockoutHours())
	assert.Equal(t, models.SeverityOK, p.Severity)
	assert.True(t, p.Gap.IsZero())
	assert.False(t, NeedsAttention(p))
}

func TestClassifySeverity_Breakpoints(t *testing.T) {
	b := DefaultPolicy().Severity
	tests := []struct {
		tts  float64
		want models.Severity
	}{
		{0, models.SeverityCritical},
		{6, models.SeverityCritical},
		{6.01, models.SeverityWarning},
		{12, models.SeverityWarning},
		{42, models.SeverityWatch},
		{42.5, models.SeverityOK},
		{math.Inf(1), models.SeverityOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifySeverity(tt.tts, 6, b), "tts=%v", tt.tts)
	}
}

func TestClassifySeverity_Monotonic(t *testing.T) {
	b := DefaultPolicy().Severity
	for _, window := range []int{6, 72, 720} {
		prev := ClassifySeverity(math.Inf(1), window, b)
		for tts := float64(window * 10); tts >= 0; tts -= 0.25 {
			got := ClassifySeverity(tts, window, b)
			require.GreaterOrEqual(t, got.Rank(), prev.Rank(), "window=%d tts=%v", window, tts)
			prev = got
		}
	}
}
