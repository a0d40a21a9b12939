package handlers

import (
	"net/http"
	"strings"

	"dmis/internal/common"
	"dmis/internal/models"
	"dmis/internal/services"

	"github.com/labstack/echo/v4"
)

type EventHandlers struct {
	events services.EventService
}

func NewEventHandlers(events services.EventService) *EventHandlers {
	return &EventHandlers{events: events}
}

// PhaseBody is the payload for an event phase change.
type PhaseBody struct {
	Phase  string `json:"phase"`
	Reason string `json:"reason"`
}

func (h *EventHandlers) ListActiveEvents(c echo.Context) error {
	events, err := h.events.ListActive(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, "list events", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  events,
		"total": len(events),
	})
}

func (h *EventHandlers) GetEvent(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	event, err := h.events.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, "load event", err)
	}
	return c.JSON(http.StatusOK, event)
}

// TransitionPhase moves an event to another phase
func (h *EventHandlers) TransitionPhase(c echo.Context) error {
	actorID, ok := actorFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var body PhaseBody
	if err := c.Bind(&body); err != nil {
		return common.SendValidationError(c, "body", "invalid request body")
	}

	event, err := h.events.TransitionPhase(c.Request().Context(), id, models.EventPhase(strings.ToUpper(body.Phase)), actorID, body.Reason)
	if err != nil {
		return common.SendDomainError(c, "change event phase", err)
	}
	return c.JSON(http.StatusOK, event)
}
