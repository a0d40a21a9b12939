package replenishment

import (
	"dmis/internal/models"

	"github.com/google/uuid"
)

// BuildLine assembles an unplanned needs list line from its inputs. Horizon
// quantities are filled in later by Allocation.ApplyTo.
func BuildLine(position models.StockPosition, pipeline models.InboundPipeline, burn BurnRate, proj Projection) *models.NeedsListItem {
	return &models.NeedsListItem{
		ID:                    uuid.New(),
		ItemID:                position.ItemID,
		BurnRate:              burn.Rate,
		BurnRateSource:        burn.Source,
		AvailableQty:          proj.Available,
		ReservedQty:           position.ReservedQty,
		InboundTransferQty:    pipeline.TransferQty,
		InboundDonationQty:    pipeline.DonationQty,
		InboundProcurementQty: pipeline.ProcurementQty,
		CoverageQty:           proj.Coverage,
		RequiredQty:           proj.Required,
		GapQty:                proj.Gap,
		TimeToStockoutHours:   proj.StockoutHours(),
		Severity:              proj.Severity,
		HorizonASources:       []models.TransferSource{},
	}
}

// NeedsAttention reports whether a line belongs on a needs list.
func NeedsAttention(proj Projection) bool {
	return proj.Gap.IsPositive() || proj.Severity != models.SeverityOK
}
