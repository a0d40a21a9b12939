package handlers

import (
	"net/http"

	"dmis/internal/common"
	"dmis/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PlanningHandlers starts planning runs on request
type PlanningHandlers struct {
	planning services.PlanningService
}

func NewPlanningHandlers(planning services.PlanningService) *PlanningHandlers {
	return &PlanningHandlers{planning: planning}
}

// PlanningRunBody is the payload for a manual planning run. An empty
// warehouse list plans every active warehouse.
type PlanningRunBody struct {
	EventID      uuid.UUID   `json:"event_id"`
	WarehouseIDs []uuid.UUID `json:"warehouse_ids"`
}

// CreatePlanningRun plans the requested warehouses and returns the drafts
func (h *PlanningHandlers) CreatePlanningRun(c echo.Context) error {
	actorID, ok := actorFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var body PlanningRunBody
	if err := c.Bind(&body); err != nil {
		return common.SendValidationError(c, "body", "invalid request body")
	}
	if body.EventID == uuid.Nil {
		return common.SendValidationError(c, "event_id", "event_id is required")
	}

	result, err := h.planning.Run(c.Request().Context(), services.PlanningRequest{
		EventID:      body.EventID,
		WarehouseIDs: body.WarehouseIDs,
		ActorID:      actorID,
		Trigger:      services.TriggerManual,
	})
	if err != nil {
		return common.SendDomainError(c, "run planning", err)
	}
	return c.JSON(http.StatusCreated, result)
}
