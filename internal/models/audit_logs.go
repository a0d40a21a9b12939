package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only record of a status change or quantity adjustment.
type AuditEntry struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	EntityType  string     `json:"entity_type" db:"entity_type"`
	EntityID    uuid.UUID  `json:"entity_id" db:"entity_id"`
	NeedsListID *uuid.UUID `json:"needs_list_id,omitempty" db:"needs_list_id"`
	Action      string     `json:"action" db:"action"`
	ActorID     uuid.UUID  `json:"actor_id" db:"actor_id"`
	ReasonCode  *string    `json:"reason_code,omitempty" db:"reason_code"`
	Reason      *string    `json:"reason,omitempty" db:"reason"`
	OldValues   JSONB      `json:"old_values" db:"old_values"`
	NewValues   JSONB      `json:"new_values" db:"new_values"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Entity types recorded in the audit trail
const (
	EntityNeedsList     = "needs_list"
	EntityNeedsListItem = "needs_list_item"
	EntityEvent         = "event"
)

// Action constants for audit entries
const (
	AuditStatusChanged    = "STATUS_CHANGED"
	AuditQuantityAdjusted = "QUANTITY_ADJUSTED"
	AuditEscalated        = "ESCALATED"
	AuditPhaseChanged     = "PHASE_CHANGED"
)

// AuditEntryFilters represents filters for querying audit entries
type AuditEntryFilters struct {
	NeedsListID *uuid.UUID `json:"needs_list_id"`
	EntityType  *string    `json:"entity_type"`
	Action      *string    `json:"action"`
	ActorID     *uuid.UUID `json:"actor_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}
