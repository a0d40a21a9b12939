package replenishment

import (
	"testing"
	"time"

	"dmis/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFreshness(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	thresholds := DefaultPolicy().Freshness

	tests := []struct {
		name string
		age  *time.Duration
		want models.FreshnessTier
	}{
		{"never synced", nil, models.FreshnessStale},
		{"just synced", durationPtr(0), models.FreshnessHigh},
		{"just under four hours", durationPtr(3*time.Hour + 59*time.Minute), models.FreshnessHigh},
		{"exactly four hours", durationPtr(4 * time.Hour), models.FreshnessMedium},
		{"just under twelve hours", durationPtr(11 * time.Hour), models.FreshnessMedium},
		{"exactly twelve hours", durationPtr(12 * time.Hour), models.FreshnessLow},
		{"exactly twenty four hours", durationPtr(24 * time.Hour), models.FreshnessLow},
		{"beyond a day", durationPtr(24*time.Hour + time.Minute), models.FreshnessStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last *time.Time
			if tt.age != nil {
				ts := asOf.Add(-*tt.age)
				last = &ts
			}
			assert.Equal(t, tt.want, ClassifyFreshness(last, asOf, thresholds))
		})
	}
}

func TestSummarize(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	thresholds := DefaultPolicy().Freshness

	syncAt := func(hoursAgo float64) *time.Time {
		ts := asOf.Add(-time.Duration(hoursAgo * float64(time.Hour)))
		return &ts
	}
	wh := func(name string) models.Warehouse {
		return models.Warehouse{ID: uuid.New(), Name: name, IsActive: true}
	}

	t.Run("empty set is all fresh", func(t *testing.T) {
		s := Summarize(nil, asOf, thresholds)
		assert.Equal(t, models.FreshnessAllFresh, s.OverallState)
		assert.Empty(t, s.NonFreshWarehouses)
		assert.Nil(t, s.MaxStalenessHours)
		assert.False(t, s.HasNeverSynced)
	})

	t.Run("all high", func(t *testing.T) {
		s := Summarize([]WarehouseSync{
			{Warehouse: wh("Kingston"), LastSuccessfulSync: syncAt(1)},
			{Warehouse: wh("Montego Bay"), LastSuccessfulSync: syncAt(2)},
		}, asOf, thresholds)
		assert.Equal(t, models.FreshnessAllFresh, s.OverallState)
		assert.Nil(t, s.MaxStalenessHours, "fresh warehouses do not contribute staleness")
		require.NotNil(t, s.LastSuccessfulSync)
		assert.Equal(t, *syncAt(1), *s.LastSuccessfulSync)
	})

	t.Run("medium or low without stale is some stale", func(t *testing.T) {
		s := Summarize([]WarehouseSync{
			{Warehouse: wh("Kingston"), LastSuccessfulSync: syncAt(1)},
			{Warehouse: wh("Ocho Rios"), LastSuccessfulSync: syncAt(13)},
			{Warehouse: wh("Mandeville"), LastSuccessfulSync: syncAt(5)},
		}, asOf, thresholds)
		assert.Equal(t, models.FreshnessSomeStale, s.OverallState)
		assert.Equal(t, []string{"Mandeville", "Ocho Rios"}, s.NonFreshWarehouses)
		assert.InDelta(t, 13.0, *s.MaxStalenessHours, 0.0001)
	})

	t.Run("any stale is critical", func(t *testing.T) {
		s := Summarize([]WarehouseSync{
			{Warehouse: wh("Kingston"), LastSuccessfulSync: syncAt(1)},
			{Warehouse: wh("Port Antonio"), LastSuccessfulSync: nil},
		}, asOf, thresholds)
		assert.Equal(t, models.FreshnessCriticalStale, s.OverallState)
		assert.True(t, s.HasNeverSynced)
		assert.Equal(t, []string{"Port Antonio"}, s.NonFreshWarehouses)
		assert.Nil(t, s.MaxStalenessHours, "a never-synced warehouse is unbounded, not the fresh one's age")
		require.NotNil(t, s.LastSuccessfulSync)
		assert.Equal(t, *syncAt(1), *s.LastSuccessfulSync)
	})

	t.Run("max staleness ignores fresh warehouses", func(t *testing.T) {
		s := Summarize([]WarehouseSync{
			{Warehouse: wh("Kingston"), LastSuccessfulSync: syncAt(3.5)},
			{Warehouse: wh("Savanna-la-Mar"), LastSuccessfulSync: syncAt(30)},
			{Warehouse: wh("Mandeville"), LastSuccessfulSync: syncAt(6)},
		}, asOf, thresholds)
		assert.Equal(t, models.FreshnessCriticalStale, s.OverallState)
		assert.Equal(t, []string{"Mandeville", "Savanna-la-Mar"}, s.NonFreshWarehouses)
		require.NotNil(t, s.MaxStalenessHours)
		assert.InDelta(t, 30.0, *s.MaxStalenessHours, 0.0001)
	})
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
