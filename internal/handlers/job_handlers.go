package handlers

import (
	"errors"
	"net/http"

	"dmis/internal/common"
	"dmis/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobRunner exposes the background scheduler to operators.
type JobRunner interface {
	GetJobStatus() map[string]interface{}
	RunNow(name string) error
}

type JobHandlers struct {
	scheduler JobRunner
}

func NewJobHandlers(scheduler JobRunner) *JobHandlers {
	return &JobHandlers{scheduler: scheduler}
}

func (h *JobHandlers) GetJobStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}

// RunJob triggers a scheduled job out of band
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.scheduler.RunNow(name); err != nil {
		if errors.Is(err, background.ErrJobNotRegistered) {
			return c.JSON(http.StatusNotFound, common.CreateErrorResponse("E_NOT_FOUND", err.Error(), nil))
		}
		return common.SendServerError(c, "failed to trigger job")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
}
