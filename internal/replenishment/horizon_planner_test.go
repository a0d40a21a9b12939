package replenishment

import (
	"errors"
	"testing"

	"dmis/internal/models"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(from, to uuid.UUID, hours int) models.LeadTimeConfig {
	return models.LeadTimeConfig{
		ID:              uuid.New(),
		Horizon:         models.HorizonTransfer,
		FromWarehouseID: &from,
		ToWarehouseID:   &to,
		LeadTimeHours:   hours,
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestHorizonPlanner_Waterfall(t *testing.T) {
	target, near, far, unrouted := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	item := uuid.New()

	pool := NewWorkingPool()
	pool.SetSurplus(near, item, dec(100))
	pool.SetSurplus(far, item, dec(500))
	pool.SetSurplus(unrouted, item, dec(10000))
	pool.SetDonation(item, dec(250))

	table := NewLeadTimeTable([]models.LeadTimeConfig{
		route(near, target, 4),
		route(far, target, 12),
	}, DefaultPolicy())
	planner := NewHorizonPlanner(pool, table)

	alloc, err := planner.PlanLine(target, item, dec(1000), 72)
	require.NoError(t, err)

	assert.True(t, dec(600).Equal(alloc.HorizonA), "got %s", alloc.HorizonA)
	assert.True(t, dec(250).Equal(alloc.HorizonB), "got %s", alloc.HorizonB)
	assert.True(t, dec(150).Equal(alloc.HorizonC), "got %s", alloc.HorizonC)
	require.Len(t, alloc.Sources, 2)
	assert.Equal(t, near, alloc.Sources[0].WarehouseID)
	assert.Equal(t, 4, alloc.Sources[0].LeadTimeHours)
	assert.Equal(t, far, alloc.Sources[1].WarehouseID)
	require.NotNil(t, alloc.DonationLeadTimeHours)
	assert.Equal(t, 48, *alloc.DonationLeadTimeHours)
	require.NotNil(t, alloc.ProcurementLeadTimeHours)
	assert.Equal(t, 336, *alloc.ProcurementLeadTimeHours)
	assert.NoError(t, alloc.Check())

	assert.True(t, pool.Surplus(near, item).IsZero())
	assert.True(t, pool.Surplus(far, item).IsZero())
	assert.True(t, pool.Donation(item).IsZero())
	assert.True(t, dec(10000).Equal(pool.Surplus(unrouted, item)), "unrouted sources are never drawn")
}

func TestHorizonPlanner_TieBreaks(t *testing.T) {
	target, small, large := uuid.New(), uuid.New(), uuid.New()
	item := uuid.New()

	pool := NewWorkingPool()
	pool.SetSurplus(small, item, dec(30))
	pool.SetSurplus(large, item, dec(80))

	table := NewLeadTimeTable([]models.LeadTimeConfig{
		route(small, target, 8),
		route(large, target, 8),
	}, DefaultPolicy())

	alloc, err := NewHorizonPlanner(pool, table).PlanLine(target, item, dec(50), 72)
	require.NoError(t, err)
	require.Len(t, alloc.Sources, 1)
	assert.Equal(t, large, alloc.Sources[0].WarehouseID, "equal lead times prefer the larger surplus")
	assert.True(t, dec(50).Equal(alloc.HorizonA))
	assert.True(t, dec(30).Equal(pool.Surplus(large, item)))
}

func TestHorizonPlanner_RouteBeyondCapIsIgnored(t *testing.T) {
	target, slow := uuid.New(), uuid.New()
	item := uuid.New()

	pool := NewWorkingPool()
	pool.SetSurplus(slow, item, dec(1000))
	table := NewLeadTimeTable([]models.LeadTimeConfig{route(slow, target, 96)}, DefaultPolicy())

	alloc, err := NewHorizonPlanner(pool, table).PlanLine(target, item, dec(40), 72)
	require.NoError(t, err)
	assert.True(t, alloc.HorizonA.IsZero())
	assert.True(t, dec(40).Equal(alloc.HorizonC))
}

func TestHorizonPlanner_NoDoubleCountingAcrossLines(t *testing.T) {
	source, first, second := uuid.New(), uuid.New(), uuid.New()
	item := uuid.New()

	pool := NewWorkingPool()
	pool.SetSurplus(source, item, dec(100))
	table := NewLeadTimeTable([]models.LeadTimeConfig{
		route(source, first, 6),
		route(source, second, 6),
	}, DefaultPolicy())
	planner := NewHorizonPlanner(pool, table)

	a1, err := planner.PlanLine(first, item, dec(70), 72)
	require.NoError(t, err)
	a2, err := planner.PlanLine(second, item, dec(70), 72)
	require.NoError(t, err)

	assert.True(t, dec(70).Equal(a1.HorizonA))
	assert.True(t, dec(30).Equal(a2.HorizonA))
	assert.True(t, dec(40).Equal(a2.HorizonC))
	assert.True(t, a1.HorizonA.Add(a2.HorizonA).LessThanOrEqual(dec(100)))
}

func TestHorizonPlanner_ZeroGap(t *testing.T) {
	alloc, err := NewHorizonPlanner(NewWorkingPool(), NewLeadTimeTable(nil, DefaultPolicy())).PlanLine(uuid.New(), uuid.New(), decimal.Zero, 72)
	require.NoError(t, err)
	assert.True(t, alloc.Total().IsZero())
	assert.Empty(t, alloc.Sources)
}

func TestHorizonPlanner_MissingProcurementLeadTime(t *testing.T) {
	policy := DefaultPolicy()
	policy.ProcurementLeadTimeHours = 0
	item := uuid.New()

	pool := NewWorkingPool()
	pool.SetDonation(item, dec(10))
	planner := NewHorizonPlanner(pool, NewLeadTimeTable(nil, policy))

	alloc, err := planner.PlanLine(uuid.New(), item, dec(25), 72)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errclass.ErrPlanInvariantViolation))
	assert.Nil(t, alloc.ProcurementLeadTimeHours)
	assert.True(t, dec(10).Equal(pool.Donation(item)), "a rejected plan must not consume the pool")
}

func TestLeadTimeTable_Overrides(t *testing.T) {
	donation := models.LeadTimeConfig{Horizon: models.HorizonDonation, LeadTimeHours: 24}
	procurement := models.LeadTimeConfig{Horizon: models.HorizonProcurement, LeadTimeHours: 500}
	from, to := uuid.New(), uuid.New()
	badRoute := models.LeadTimeConfig{Horizon: models.HorizonTransfer, ToWarehouseID: &to, LeadTimeHours: 3}

	table := NewLeadTimeTable([]models.LeadTimeConfig{donation, procurement, badRoute, route(from, to, 5)}, DefaultPolicy())

	h, ok := table.Donation()
	assert.True(t, ok)
	assert.Equal(t, 24, h)
	h, ok = table.Procurement()
	assert.True(t, ok)
	assert.Equal(t, 500, h)
	h, ok = table.Route(from, to)
	assert.True(t, ok)
	assert.Equal(t, 5, h)
	_, ok = table.Route(to, from)
	assert.False(t, ok, "routes are directional")
}
