package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomePartial SyncOutcome = "partial"
	SyncOutcomeFailure SyncOutcome = "failure"
)

func ParseSyncOutcome(s string) (SyncOutcome, error) {
	switch o := SyncOutcome(s); o {
	case SyncOutcomeSuccess, SyncOutcomePartial, SyncOutcomeFailure:
		return o, nil
	}
	return "", fmt.Errorf("unknown sync outcome %q", s)
}

// SyncRecord is one attempt by a warehouse to push its ledger upstream.
type SyncRecord struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	WarehouseID uuid.UUID   `json:"warehouse_id" db:"warehouse_id"`
	Outcome     SyncOutcome `json:"outcome" db:"outcome"`
	SyncedAt    time.Time   `json:"synced_at" db:"synced_at"`
	Detail      *string     `json:"detail,omitempty" db:"detail"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
