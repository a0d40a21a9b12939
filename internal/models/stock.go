package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockPosition is one warehouse's ledger entry for one item.
type StockPosition struct {
	WarehouseID  uuid.UUID       `json:"warehouse_id" db:"warehouse_id"`
	ItemID       uuid.UUID       `json:"item_id" db:"item_id"`
	UsableQty    decimal.Decimal `json:"usable_qty" db:"usable_qty"`
	ReservedQty  decimal.Decimal `json:"reserved_qty" db:"reserved_qty"`
	DefectiveQty decimal.Decimal `json:"defective_qty" db:"defective_qty"`
	ExpiredQty   decimal.Decimal `json:"expired_qty" db:"expired_qty"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Available is usable stock not held by a reservation, never negative.
func (p StockPosition) Available() decimal.Decimal {
	available := p.UsableQty.Sub(p.ReservedQty)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Validate checks the ledger invariants for a single position.
func (p StockPosition) Validate() error {
	for name, qty := range map[string]decimal.Decimal{
		"usable_qty":    p.UsableQty,
		"reserved_qty":  p.ReservedQty,
		"defective_qty": p.DefectiveQty,
		"expired_qty":   p.ExpiredQty,
	} {
		if qty.IsNegative() {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if p.ReservedQty.GreaterThan(p.UsableQty) {
		return fmt.Errorf("reserved_qty %s exceeds usable_qty %s", p.ReservedQty, p.UsableQty)
	}
	return nil
}

// InboundPipeline is stock already confirmed to be on its way to a warehouse.
type InboundPipeline struct {
	WarehouseID    uuid.UUID       `json:"warehouse_id" db:"warehouse_id"`
	ItemID         uuid.UUID       `json:"item_id" db:"item_id"`
	TransferQty    decimal.Decimal `json:"transfer_qty" db:"transfer_qty"`
	DonationQty    decimal.Decimal `json:"donation_qty" db:"donation_qty"`
	ProcurementQty decimal.Decimal `json:"procurement_qty" db:"procurement_qty"`
}

func (p InboundPipeline) Total() decimal.Decimal {
	return p.TransferQty.Add(p.DonationQty).Add(p.ProcurementQty)
}

// DispatchEvent is one outbound movement that counts as consumption.
type DispatchEvent struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id" db:"warehouse_id"`
	ItemID       uuid.UUID       `json:"item_id" db:"item_id"`
	EventID      uuid.UUID       `json:"event_id" db:"event_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	DispatchedAt time.Time       `json:"dispatched_at" db:"dispatched_at"`
}

// DonationAvailability is the pool of pending or verified donations of an
// item that no needs list has claimed yet.
type DonationAvailability struct {
	ItemID       uuid.UUID       `json:"item_id" db:"item_id"`
	AvailableQty decimal.Decimal `json:"available_qty" db:"available_qty"`
}
