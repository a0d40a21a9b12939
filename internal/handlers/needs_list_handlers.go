package handlers

import (
	"net/http"
	"strings"

	"dmis/internal/common"
	"dmis/internal/models"
	"dmis/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// NeedsListHandlers handles needs list review and workflow requests
type NeedsListHandlers struct {
	needsLists services.NeedsListService
	exports    services.ExportService
}

func NewNeedsListHandlers(needsLists services.NeedsListService, exports services.ExportService) *NeedsListHandlers {
	return &NeedsListHandlers{
		needsLists: needsLists,
		exports:    exports,
	}
}

// TransitionBody is the payload for a workflow action.
type TransitionBody struct {
	Action          string `json:"action"`
	ExpectedVersion int    `json:"expected_version"`
	Reason          string `json:"reason"`
	ReasonCode      string `json:"reason_code"`
}

// AdjustItemBody is the payload for a reviewer quantity override.
type AdjustItemBody struct {
	ExpectedVersion int             `json:"expected_version"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reason          string          `json:"reason"`
	ReasonCode      string          `json:"reason_code"`
}

func actorFrom(c echo.Context) (uuid.UUID, bool) {
	return common.GetUserIDFromContext(c.Request().Context())
}

// ListNeedsLists returns needs lists filtered by warehouse, event and status
func (h *NeedsListHandlers) ListNeedsLists(c echo.Context) error {
	filters := &models.NeedsListFilters{}
	if v := c.QueryParam("warehouse_id"); v != "" {
		id, err := common.ValidateUUID(v, "warehouse_id")
		if err != nil {
			return common.SendValidationError(c, "warehouse_id", err.Error())
		}
		filters.WarehouseID = &id
	}
	if v := c.QueryParam("event_id"); v != "" {
		id, err := common.ValidateUUID(v, "event_id")
		if err != nil {
			return common.SendValidationError(c, "event_id", err.Error())
		}
		filters.EventID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		status, err := models.ParseNeedsListStatus(strings.ToUpper(v))
		if err != nil {
			return common.SendValidationError(c, "status", err.Error())
		}
		filters.Status = &status
	}
	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}
	filters.Limit, filters.Offset = limit, offset

	lists, err := h.needsLists.List(c.Request().Context(), filters)
	if err != nil {
		return common.SendDomainError(c, "list needs lists", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   lists,
		"total":  len(lists),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

// GetNeedsList returns one needs list with its lines
func (h *NeedsListHandlers) GetNeedsList(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	list, err := h.needsLists.Get(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, "load needs list", err)
	}
	return c.JSON(http.StatusOK, list)
}

// TransitionNeedsList applies one workflow action
func (h *NeedsListHandlers) TransitionNeedsList(c echo.Context) error {
	actorID, ok := actorFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var body TransitionBody
	if err := c.Bind(&body); err != nil {
		return common.SendValidationError(c, "body", "invalid request body")
	}
	if body.ExpectedVersion <= 0 {
		return common.SendValidationError(c, "expected_version", "expected_version is required")
	}

	list, err := h.needsLists.Transition(c.Request().Context(), services.TransitionRequest{
		ListID:          id,
		Action:          body.Action,
		ActorID:         actorID,
		ExpectedVersion: body.ExpectedVersion,
		Reason:          body.Reason,
		ReasonCode:      body.ReasonCode,
	})
	if err != nil {
		return common.SendDomainError(c, "transition needs list", err)
	}
	return c.JSON(http.StatusOK, list)
}

// AdjustItem overrides the quantity on one line under review
func (h *NeedsListHandlers) AdjustItem(c echo.Context) error {
	actorID, ok := actorFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	lineID, err := common.ValidateUUID(c.Param("itemId"), "itemId")
	if err != nil {
		return common.SendValidationError(c, "itemId", err.Error())
	}

	var body AdjustItemBody
	if err := c.Bind(&body); err != nil {
		return common.SendValidationError(c, "body", "invalid request body")
	}
	if body.ExpectedVersion <= 0 {
		return common.SendValidationError(c, "expected_version", "expected_version is required")
	}

	item, version, err := h.needsLists.AdjustQuantity(c.Request().Context(), services.AdjustQuantityRequest{
		ListID:          id,
		LineID:          lineID,
		ActorID:         actorID,
		ExpectedVersion: body.ExpectedVersion,
		Quantity:        body.Quantity,
		Reason:          body.Reason,
		ReasonCode:      body.ReasonCode,
	})
	if err != nil {
		return common.SendDomainError(c, "adjust needs list item", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item":    item,
		"version": version,
	})
}

// History returns the audit trail of one needs list, oldest first
func (h *NeedsListHandlers) History(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	entries, err := h.needsLists.History(c.Request().Context(), id, limit, offset)
	if err != nil {
		return common.SendDomainError(c, "load needs list history", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   entries,
		"total":  len(entries),
		"limit":  limit,
		"offset": offset,
	})
}

// Export uploads JSON and PDF renditions and returns download links
func (h *NeedsListHandlers) Export(c echo.Context) error {
	actorID, ok := actorFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	result, err := h.exports.Export(c.Request().Context(), id, actorID)
	if err != nil {
		return common.SendDomainError(c, "export needs list", err)
	}
	return c.JSON(http.StatusCreated, result)
}
