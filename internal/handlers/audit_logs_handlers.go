package handlers

import (
	"net/http"

	"dmis/internal/common"
	"dmis/internal/models"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit trail queries
type AuditLogsHandlers struct {
	auditService services.AuditService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditService services.AuditService) *AuditLogsHandlers {
	return &AuditLogsHandlers{
		auditService: auditService,
	}
}

// ListAuditEntries retrieves audit entries with filtering and pagination
func (h *AuditLogsHandlers) ListAuditEntries(c echo.Context) error {
	filters := &models.AuditEntryFilters{}
	if v := c.QueryParam("needs_list_id"); v != "" {
		id, err := common.ValidateUUID(v, "needs_list_id")
		if err != nil {
			return common.SendValidationError(c, "needs_list_id", err.Error())
		}
		filters.NeedsListID = &id
	}
	if v := c.QueryParam("entity_type"); v != "" {
		filters.EntityType = &v
	}
	if v := c.QueryParam("action"); v != "" {
		filters.Action = &v
	}
	if v := c.QueryParam("actor_id"); v != "" {
		id, err := common.ValidateUUID(v, "actor_id")
		if err != nil {
			return common.SendValidationError(c, "actor_id", err.Error())
		}
		filters.ActorID = &id
	}

	var err error
	if filters.StartDate, err = common.ParseTimeParam(c, "start_date"); err != nil {
		return common.SendValidationError(c, "start_date", err.Error())
	}
	if filters.EndDate, err = common.ParseTimeParam(c, "end_date"); err != nil {
		return common.SendValidationError(c, "end_date", err.Error())
	}
	if filters.Limit, filters.Offset, err = common.PaginationFromQuery(c); err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	entries, err := h.auditService.List(c.Request().Context(), filters)
	if err != nil {
		return common.SendDomainError(c, "retrieve audit entries", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   entries,
		"total":  len(entries),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}
