package handlers

import (
	"net/http"
	"time"

	"dmis/internal/common"
	"dmis/internal/models"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
)

// WarehouseHandlers serves warehouses and their sync history
type WarehouseHandlers struct {
	warehouses services.WarehouseService
	syncs      services.SyncService
}

func NewWarehouseHandlers(warehouses services.WarehouseService, syncs services.SyncService) *WarehouseHandlers {
	return &WarehouseHandlers{
		warehouses: warehouses,
		syncs:      syncs,
	}
}

// SyncBody reports one sync attempt from a warehouse.
type SyncBody struct {
	Outcome  string     `json:"outcome"`
	SyncedAt *time.Time `json:"synced_at"`
	Detail   *string    `json:"detail"`
}

func (h *WarehouseHandlers) ListWarehouses(c echo.Context) error {
	warehouses, err := h.warehouses.ListActive(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, "list warehouses", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  warehouses,
		"total": len(warehouses),
	})
}

func (h *WarehouseHandlers) GetWarehouse(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	warehouse, err := h.warehouses.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, "load warehouse", err)
	}
	return c.JSON(http.StatusOK, warehouse)
}

// RecordSync stores a sync attempt reported by a warehouse
func (h *WarehouseHandlers) RecordSync(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var body SyncBody
	if err := c.Bind(&body); err != nil {
		return common.SendValidationError(c, "body", "invalid request body")
	}

	record := &models.SyncRecord{
		WarehouseID: id,
		Outcome:     models.SyncOutcome(body.Outcome),
		Detail:      body.Detail,
	}
	if body.SyncedAt != nil {
		record.SyncedAt = body.SyncedAt.UTC()
	}
	if err := h.syncs.RecordSync(c.Request().Context(), record); err != nil {
		return common.SendDomainError(c, "record sync", err)
	}
	return c.JSON(http.StatusCreated, record)
}

func (h *WarehouseHandlers) ListSyncs(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	records, err := h.syncs.ListByWarehouse(c.Request().Context(), id, limit, offset)
	if err != nil {
		return common.SendDomainError(c, "list syncs", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   records,
		"total":  len(records),
		"limit":  limit,
		"offset": offset,
	})
}
