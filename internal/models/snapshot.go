package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanningSnapshot is everything a planning run reads, captured in a single
// consistent read at AsOf.
type PlanningSnapshot struct {
	AsOf               time.Time
	Warehouses         []Warehouse
	LastSuccessfulSync map[uuid.UUID]time.Time
	Positions          []StockPosition
	Pipelines          []InboundPipeline
	Dispatches         []DispatchEvent
	LeadTimes          []LeadTimeConfig
	Donations          []DonationAvailability
}
