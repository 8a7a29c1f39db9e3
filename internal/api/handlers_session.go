// handlers_session.go - Analysis session lifecycle handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

type startSessionRequest struct {
	Year    int    `json:"year"`
	Track   string `json:"track"`
	Session string `json:"session"`
}

// HandleStartSession begins loading a year/track/session tuple
func (h *SessionHandlerImpl) HandleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Year < 1950 {
		return NewValidationError("year")
	}
	if req.Track == "" {
		return NewValidationError("track")
	}
	if req.Session == "" {
		return NewValidationError("session")
	}

	sess, err := h.sessionMgr.StartSession(req.Year, req.Track, req.Session)
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleListSessions returns all active sessions
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.List())
}

// HandleSessionStatus returns the current status of a session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteSession removes a session and its telemetry cache
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.Delete(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleSessionProgressStream streams load progress via SSE
func (h *SessionHandlerImpl) HandleSessionProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}
	h.sendSSEData(c, sess)
	if sess.Status == models.StatusComplete || sess.Status == models.StatusError {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)

			if sess.Status == models.StatusComplete ||
				sess.Status == models.StatusError {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (h *SessionHandlerImpl) sendSSEData(c echo.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", data)
	c.Response().Flush()
}

func (h *SessionHandlerImpl) sendSSEError(c echo.Context, msg string) {
	fmt.Fprintf(c.Response(), "event: error\ndata: %q\n\n", msg)
	c.Response().Flush()
}

// HandleGetDrivers returns the entrants of a completed session
func (h *SessionHandlerImpl) HandleGetDrivers(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	drivers, err := h.sessionMgr.Drivers(id)
	if err != nil {
		return domainError(err)
	}
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, drivers)
}

// HandleGetLaps returns the laps of a driver within a session
func (h *SessionHandlerImpl) HandleGetLaps(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	code := c.QueryParam("driver")
	if code == "" {
		return NewValidationError("driver")
	}

	driver, err := h.sessionMgr.Driver(id, code)
	if err != nil {
		return domainError(err)
	}

	laps, err := h.sessionMgr.Laps(c.Request().Context(), id, driver.Number)
	if err != nil {
		return domainError(err)
	}
	h.sessionMgr.TouchSession(id)

	// Stats stay nil when no lap has a usable time.
	stats, _ := metrics.SummarizeLapTimes(laps)
	return c.JSON(http.StatusOK, lapsResponse{Driver: driver, Laps: laps, Stats: stats})
}

type lapsResponse struct {
	Driver models.Driver         `json:"driver"`
	Laps   []models.Lap          `json:"laps"`
	Stats  *metrics.LapTimeStats `json:"stats,omitempty"`
}
