// handlers_schedule.go - Event calendar handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/f1-visualizer/backend/internal/f1data"
)

// ScheduleHandlerImpl implements the ScheduleHandler interface
type ScheduleHandlerImpl struct {
	schedule ScheduleProvider
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedule ScheduleProvider) ScheduleHandler {
	return &ScheduleHandlerImpl{schedule: schedule}
}

// HandleGetTracks returns the event calendar for a year
func (h *ScheduleHandlerImpl) HandleGetTracks(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1950 {
		return NewValidationError("year")
	}

	events, err := h.schedule.Schedule(c.Request().Context(), year)
	if err != nil {
		return domainError(err)
	}
	if len(events) == 0 {
		return NewNotFoundError("schedule", c.Param("year"))
	}

	return c.JSON(http.StatusOK, events)
}

// HandleGetSessionCodes returns the accepted session code values
func (h *ScheduleHandlerImpl) HandleGetSessionCodes(c echo.Context) error {
	return c.JSON(http.StatusOK, f1data.SessionCodes())
}
