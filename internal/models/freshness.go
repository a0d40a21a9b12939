package models

import (
	"time"

	"github.com/google/uuid"
)

type FreshnessTier string

const (
	FreshnessHigh   FreshnessTier = "HIGH"
	FreshnessMedium FreshnessTier = "MEDIUM"
	FreshnessLow    FreshnessTier = "LOW"
	FreshnessStale  FreshnessTier = "STALE"
)

// Trusted reports whether consumption data at this tier is reliable enough
// to compute a burn rate from it.
func (t FreshnessTier) Trusted() bool {
	return t == FreshnessHigh || t == FreshnessMedium
}

type FreshnessOverall string

const (
	FreshnessAllFresh      FreshnessOverall = "ALL_FRESH"
	FreshnessSomeStale     FreshnessOverall = "SOME_STALE"
	FreshnessCriticalStale FreshnessOverall = "CRITICAL_STALE"
)

// WarehouseFreshness is the classified sync state of one warehouse.
type WarehouseFreshness struct {
	WarehouseID        uuid.UUID     `json:"warehouse_id"`
	WarehouseName      string        `json:"warehouse_name"`
	Tier               FreshnessTier `json:"tier"`
	LastSuccessfulSync *time.Time    `json:"last_successful_sync"`
	AgeHours           *float64      `json:"age_hours"`
}

// FreshnessSummary aggregates freshness across all active warehouses.
type FreshnessSummary struct {
	OverallState       FreshnessOverall     `json:"overall_state"`
	Warehouses         []WarehouseFreshness `json:"warehouses"`
	NonFreshWarehouses []string             `json:"non_fresh_warehouses"`
	// MaxStalenessHours is the oldest sync among non-fresh warehouses. Nil
	// when all are fresh, or unbounded when HasNeverSynced is set.
	MaxStalenessHours  *float64             `json:"max_staleness_hours"`
	HasNeverSynced     bool                 `json:"has_never_synced"`
	LastSuccessfulSync *time.Time           `json:"last_successful_sync"`
	IsRefreshing       bool                 `json:"is_refreshing"`
	CalculatedAt       time.Time            `json:"calculated_at"`
}
