package handlers

import (
	"net/http"

	"dmis/internal/common"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
)

type FreshnessHandlers struct {
	freshness services.FreshnessService
}

func NewFreshnessHandlers(freshness services.FreshnessService) *FreshnessHandlers {
	return &FreshnessHandlers{freshness: freshness}
}

// GetFreshness returns the data freshness summary across warehouses
func (h *FreshnessHandlers) GetFreshness(c echo.Context) error {
	summary, err := h.freshness.Summary(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, "load freshness summary", err)
	}
	return c.JSON(http.StatusOK, summary)
}

// RefreshFreshness schedules a recomputation and returns without waiting
func (h *FreshnessHandlers) RefreshFreshness(c echo.Context) error {
	scheduled, err := h.freshness.TriggerRefresh(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, "schedule freshness refresh", err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"scheduled":       scheduled,
		"already_pending": !scheduled,
	})
}
