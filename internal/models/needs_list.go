package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NeedsListStatus string

const (
	StatusDraft           NeedsListStatus = "DRAFT"
	StatusPendingApproval NeedsListStatus = "PENDING_APPROVAL"
	StatusUnderReview     NeedsListStatus = "UNDER_REVIEW"
	StatusApproved        NeedsListStatus = "APPROVED"
	StatusRejected        NeedsListStatus = "REJECTED"
	StatusInProgress      NeedsListStatus = "IN_PROGRESS"
	StatusCompleted       NeedsListStatus = "COMPLETED"
	StatusCancelled       NeedsListStatus = "CANCELLED"
)

// NeedsListStatuses lists every status in workflow order.
var NeedsListStatuses = []NeedsListStatus{
	StatusDraft,
	StatusPendingApproval,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// ParseNeedsListStatus rejects anything outside the closed status set.
func ParseNeedsListStatus(s string) (NeedsListStatus, error) {
	for _, status := range NeedsListStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown needs list status %q", s)
}

func (s NeedsListStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

type BurnRateSource string

const (
	BurnRateCalculated BurnRateSource = "CALCULATED"
	BurnRateBaseline   BurnRateSource = "BASELINE"
)

type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityWatch    Severity = "WATCH"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from least to most urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityWatch:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// NeedsList is a warehouse's replenishment plan for one calculation run.
type NeedsList struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	WarehouseID            uuid.UUID       `json:"warehouse_id" db:"warehouse_id"`
	EventID                uuid.UUID       `json:"event_id" db:"event_id"`
	EventPhase             EventPhase      `json:"event_phase" db:"event_phase"`
	CalculatedAt           time.Time       `json:"calculated_at" db:"calculated_at"`
	DemandWindowHours      int             `json:"demand_window_hours" db:"demand_window_hours"`
	PlanningWindowHours    int             `json:"planning_window_hours" db:"planning_window_hours"`
	SafetyBufferMultiplier decimal.Decimal `json:"safety_buffer_multiplier" db:"safety_buffer_multiplier"`
	FreshnessTier          FreshnessTier   `json:"freshness_tier" db:"freshness_tier"`
	Status                 NeedsListStatus `json:"status" db:"status"`
	Version                int             `json:"version" db:"version"`
	EscalationLevel        int             `json:"escalation_level" db:"escalation_level"`
	ReviewNotes            *string         `json:"review_notes,omitempty" db:"review_notes"`
	CreatedBy              uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`

	Totals NeedsListTotals  `json:"totals"`
	Items  []*NeedsListItem `json:"items,omitempty"`
}

// NeedsListTotals is the header summary derived from the list's lines.
type NeedsListTotals struct {
	LineCount         int             `json:"line_count" db:"line_count"`
	CriticalCount     int             `json:"critical_count" db:"critical_count"`
	WarningCount      int             `json:"warning_count" db:"warning_count"`
	WatchCount        int             `json:"watch_count" db:"watch_count"`
	BaselineLineCount int             `json:"baseline_line_count" db:"baseline_line_count"`
	TotalRequired     decimal.Decimal `json:"total_required" db:"total_required"`
	TotalGap          decimal.Decimal `json:"total_gap" db:"total_gap"`
	TotalHorizonA     decimal.Decimal `json:"total_horizon_a" db:"total_horizon_a"`
	TotalHorizonB     decimal.Decimal `json:"total_horizon_b" db:"total_horizon_b"`
	TotalHorizonC     decimal.Decimal `json:"total_horizon_c" db:"total_horizon_c"`
}

// ComputeTotals recalculates the header totals from the current items.
func (n *NeedsList) ComputeTotals() {
	t := NeedsListTotals{
		TotalRequired: decimal.Zero,
		TotalGap:      decimal.Zero,
		TotalHorizonA: decimal.Zero,
		TotalHorizonB: decimal.Zero,
		TotalHorizonC: decimal.Zero,
	}
	for _, item := range n.Items {
		t.LineCount++
		switch item.Severity {
		case SeverityCritical:
			t.CriticalCount++
		case SeverityWarning:
			t.WarningCount++
		case SeverityWatch:
			t.WatchCount++
		}
		if item.BurnRateSource == BurnRateBaseline {
			t.BaselineLineCount++
		}
		t.TotalRequired = t.TotalRequired.Add(item.RequiredQty)
		t.TotalGap = t.TotalGap.Add(item.GapQty)
		t.TotalHorizonA = t.TotalHorizonA.Add(item.HorizonAQty)
		t.TotalHorizonB = t.TotalHorizonB.Add(item.HorizonBQty)
		t.TotalHorizonC = t.TotalHorizonC.Add(item.HorizonCQty)
	}
	n.Totals = t
}

// TransferSource records one sibling warehouse feeding a Horizon A allocation.
type TransferSource struct {
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	LeadTimeHours int             `json:"lead_time_hours"`
}

// NeedsListItem is one item line within a needs list.
type NeedsListItem struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	NeedsListID           uuid.UUID        `json:"needs_list_id" db:"needs_list_id"`
	ItemID                uuid.UUID        `json:"item_id" db:"item_id"`
	BurnRate              decimal.Decimal  `json:"burn_rate" db:"burn_rate"`
	BurnRateSource        BurnRateSource   `json:"burn_rate_source" db:"burn_rate_source"`
	AvailableQty          decimal.Decimal  `json:"available_qty" db:"available_qty"`
	ReservedQty           decimal.Decimal  `json:"reserved_qty" db:"reserved_qty"`
	InboundTransferQty    decimal.Decimal  `json:"inbound_transfer_qty" db:"inbound_transfer_qty"`
	InboundDonationQty    decimal.Decimal  `json:"inbound_donation_qty" db:"inbound_donation_qty"`
	InboundProcurementQty decimal.Decimal  `json:"inbound_procurement_qty" db:"inbound_procurement_qty"`
	CoverageQty           decimal.Decimal  `json:"coverage_qty" db:"coverage_qty"`
	RequiredQty           decimal.Decimal  `json:"required_qty" db:"required_qty"`
	GapQty                decimal.Decimal  `json:"gap_qty" db:"gap_qty"`
	TimeToStockoutHours   *float64         `json:"time_to_stockout_hours" db:"time_to_stockout_hours"`                 // nil when nothing is being consumed
	Severity              Severity         `json:"severity" db:"severity"`
	HorizonAQty           decimal.Decimal  `json:"horizon_a_qty" db:"horizon_a_qty"`
	HorizonBQty           decimal.Decimal  `json:"horizon_b_qty" db:"horizon_b_qty"`
	HorizonCQty           decimal.Decimal  `json:"horizon_c_qty" db:"horizon_c_qty"`
	HorizonASources       []TransferSource `json:"horizon_a_sources" db:"horizon_a_sources"`
	HorizonBLeadTimeHours *int             `json:"horizon_b_lead_time_hours,omitempty" db:"horizon_b_lead_time_hours"`
	HorizonCLeadTimeHours *int             `json:"horizon_c_lead_time_hours,omitempty" db:"horizon_c_lead_time_hours"`
	AdjustedQty           *decimal.Decimal `json:"adjusted_qty,omitempty" db:"adjusted_qty"`
	AdjustmentReason      *string          `json:"adjustment_reason,omitempty" db:"adjustment_reason"`
}

// CheckGapAccounting verifies the three horizons exactly cover the gap.
func (i *NeedsListItem) CheckGapAccounting() error {
	allocated := i.HorizonAQty.Add(i.HorizonBQty).Add(i.HorizonCQty)
	if !allocated.Equal(i.GapQty) {
		return fmt.Errorf("horizons allocate %s but gap is %s", allocated, i.GapQty)
	}
	return nil
}

// NeedsListFilters narrows needs list queries.
type NeedsListFilters struct {
	WarehouseID *uuid.UUID       `json:"warehouse_id"`
	EventID     *uuid.UUID       `json:"event_id"`
	Status      *NeedsListStatus `json:"status"`
	Limit       int              `json:"limit"`
	Offset      int              `json:"offset"`
}
