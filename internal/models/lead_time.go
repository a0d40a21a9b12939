package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Horizon identifies a replenishment source class.
type Horizon string

const (
	HorizonTransfer    Horizon = "A"
	HorizonDonation    Horizon = "B"
	HorizonProcurement Horizon = "C"
)

// LeadTimeConfig is a configured lead time. Transfer rows are per route,
// donation and procurement rows apply to the whole horizon.
type LeadTimeConfig struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Horizon         Horizon    `json:"horizon" db:"horizon"`
	FromWarehouseID *uuid.UUID `json:"from_warehouse_id,omitempty" db:"from_warehouse_id"`
	ToWarehouseID   *uuid.UUID `json:"to_warehouse_id,omitempty" db:"to_warehouse_id"`
	LeadTimeHours   int        `json:"lead_time_hours" db:"lead_time_hours"`
}

func (c LeadTimeConfig) Validate() error {
	if c.LeadTimeHours <= 0 {
		return fmt.Errorf("lead_time_hours must be positive")
	}
	switch c.Horizon {
	case HorizonTransfer:
		if c.FromWarehouseID == nil || c.ToWarehouseID == nil {
			return fmt.Errorf("transfer lead time requires from and to warehouses")
		}
		if *c.FromWarehouseID == *c.ToWarehouseID {
			return fmt.Errorf("transfer route cannot start and end at the same warehouse")
		}
	case HorizonDonation, HorizonProcurement:
		if c.FromWarehouseID != nil || c.ToWarehouseID != nil {
			return fmt.Errorf("horizon %s lead time is route-agnostic", c.Horizon)
		}
	default:
		return fmt.Errorf("unknown horizon %q", c.Horizon)
	}
	return nil
}
