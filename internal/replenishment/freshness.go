package replenishment

import (
	"sort"
	"time"

	"dmis/internal/models"
)

// ClassifyFreshness maps the age of a warehouse's last successful sync to a
// tier. A warehouse that has never synced is STALE.
func ClassifyFreshness(lastSuccess *time.Time, asOf time.Time, t FreshnessThresholds) models.FreshnessTier {
	if lastSuccess == nil {
		return models.FreshnessStale
	}
	age := asOf.Sub(*lastSuccess).Hours()
	switch {
	case age < t.HighHours:
		return models.FreshnessHigh
	case age < t.MediumHours:
		return models.FreshnessMedium
	case age <= t.LowHours:
		return models.FreshnessLow
	default:
		return models.FreshnessStale
	}
}

// WarehouseSync pairs a warehouse with its most recent successful sync.
type WarehouseSync struct {
	Warehouse          models.Warehouse
	LastSuccessfulSync *time.Time
}

// AssessWarehouse classifies a single warehouse.
func AssessWarehouse(ws WarehouseSync, asOf time.Time, t FreshnessThresholds) models.WarehouseFreshness {
	wf := models.WarehouseFreshness{
		WarehouseID:        ws.Warehouse.ID,
		WarehouseName:      ws.Warehouse.Name,
		Tier:               ClassifyFreshness(ws.LastSuccessfulSync, asOf, t),
		LastSuccessfulSync: ws.LastSuccessfulSync,
	}
	if ws.LastSuccessfulSync != nil {
		age := asOf.Sub(*ws.LastSuccessfulSync).Hours()
		wf.AgeHours = &age
	}
	return wf
}

// Summarize folds per-warehouse freshness into the overall state.
// CRITICAL_STALE if any warehouse is STALE, SOME_STALE if any is LOW or
// MEDIUM and none is STALE, ALL_FRESH otherwise. MaxStalenessHours covers
// only the non-fresh warehouses; it is nil when a never-synced warehouse
// contributes, since that staleness is unbounded.
func Summarize(syncs []WarehouseSync, asOf time.Time, t FreshnessThresholds) *models.FreshnessSummary {
	summary := &models.FreshnessSummary{
		OverallState:       models.FreshnessAllFresh,
		Warehouses:         make([]models.WarehouseFreshness, 0, len(syncs)),
		NonFreshWarehouses: []string{},
		CalculatedAt:       asOf,
	}

	anyStale, anyDegraded := false, false
	var maxAge *float64
	for _, ws := range syncs {
		wf := AssessWarehouse(ws, asOf, t)
		summary.Warehouses = append(summary.Warehouses, wf)

		switch wf.Tier {
		case models.FreshnessStale:
			anyStale = true
		case models.FreshnessMedium, models.FreshnessLow:
			anyDegraded = true
		}
		if wf.Tier != models.FreshnessHigh {
			summary.NonFreshWarehouses = append(summary.NonFreshWarehouses, wf.WarehouseName)
			if wf.AgeHours != nil && (maxAge == nil || *wf.AgeHours > *maxAge) {
				h := *wf.AgeHours
				maxAge = &h
			}
		}

		if wf.LastSuccessfulSync == nil {
			summary.HasNeverSynced = true
			continue
		}
		if summary.LastSuccessfulSync == nil || wf.LastSuccessfulSync.After(*summary.LastSuccessfulSync) {
			last := *wf.LastSuccessfulSync
			summary.LastSuccessfulSync = &last
		}
	}

	if !summary.HasNeverSynced {
		summary.MaxStalenessHours = maxAge
	}

	switch {
	case anyStale:
		summary.OverallState = models.FreshnessCriticalStale
	case anyDegraded:
		summary.OverallState = models.FreshnessSomeStale
	}
	sort.Strings(summary.NonFreshWarehouses)
	return summary
}
