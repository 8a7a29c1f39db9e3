// handlers_analysis.go - Statistics, telemetry, plot and export handlers
package api

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/plotting"
	"github.com/f1-visualizer/backend/internal/storage"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
}

// NewAnalysisHandler creates a new analysis handler instance
func NewAnalysisHandler(store storage.Store, sessionMgr SessionManager) AnalysisHandler {
	return &AnalysisHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
	}
}

// parseLapSelector maps a lap query value onto a selector. Accepts
// "fastest" (default), "first", "last", or a lap number.
func parseLapSelector(value string) (models.LapSelector, int, error) {
	switch strings.ToLower(value) {
	case "", "fastest":
		return models.LapFastest, 0, nil
	case "first":
		return models.LapFirst, 0, nil
	case "last":
		return models.LapLast, 0, nil
	}
	number, err := strconv.Atoi(value)
	if err != nil || number < 1 {
		return "", 0, fmt.Errorf("invalid lap selector %q", value)
	}
	return models.LapNumber, number, nil
}

// resolveFrame resolves driver and lap query params to a telemetry frame.
func (h *AnalysisHandlerImpl) resolveFrame(c echo.Context, id, driverParam, lapParam string) (models.Driver, models.Lap, models.TelemetryFrame, error) {
	code := c.QueryParam(driverParam)
	if code == "" {
		return models.Driver{}, models.Lap{}, nil, NewValidationError(driverParam)
	}
	return h.resolveFrameFromValues(c, id, code, c.QueryParam(lapParam))
}

type analysisResponse struct {
	Driver         models.Driver         `json:"driver"`
	Lap            models.Lap            `json:"lap"`
	Summary        *metrics.Summary      `json:"summary"`
	BrakingZones   []metrics.Zone        `json:"brakingZones"`
	GearShifts     []metrics.GearShift   `json:"gearShifts"`
	DRSActivations int                   `json:"drsActivations"`
	CornerSpeeds   []metrics.CornerSpeed `json:"cornerSpeeds"`
}

// HandleAnalyze returns the per-lap performance statistics
func (h *AnalysisHandlerImpl) HandleAnalyze(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	driver, lap, frame, err := h.resolveFrame(c, id, "driver", "lap")
	if err != nil {
		return err
	}

	summary, err := metrics.Summarize(frame)
	if err != nil {
		return NewInternalError("computing summary", err)
	}
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, analysisResponse{
		Driver:         driver,
		Lap:            lap,
		Summary:        summary,
		BrakingZones:   metrics.BrakingZones(frame, metrics.BrakeThreshold),
		GearShifts:     metrics.GearShifts(frame),
		DRSActivations: len(metrics.DRSActivations(frame)),
		CornerSpeeds:   metrics.CornerSpeeds(frame, metrics.EvenApexes(frame, 8), 50, 50),
	})
}

type telemetryResponse struct {
	Driver models.Driver         `json:"driver"`
	Lap    models.Lap            `json:"lap"`
	Frame  models.TelemetryFrame `json:"frame"`
}

// HandleTelemetry returns the raw telemetry frame as JSON. The frame can be
// narrowed with minDistance/maxDistance query params.
func (h *AnalysisHandlerImpl) HandleTelemetry(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	code := c.QueryParam("driver")
	if code == "" {
		return NewValidationError("driver")
	}
	driver, lap, err := h.resolveLap(c, id, code, c.QueryParam("lap"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var frame models.TelemetryFrame
	minStr, maxStr := c.QueryParam("minDistance"), c.QueryParam("maxDistance")
	if minStr != "" || maxStr != "" {
		minDist, maxDist := 0.0, math.MaxFloat64
		if minStr != "" {
			if minDist, err = strconv.ParseFloat(minStr, 64); err != nil {
				return NewValidationError("minDistance")
			}
		}
		if maxStr != "" {
			if maxDist, err = strconv.ParseFloat(maxStr, 64); err != nil {
				return NewValidationError("maxDistance")
			}
		}
		frame, err = h.sessionMgr.TelemetryRange(ctx, id, driver.Number, lap, minDist, maxDist)
	} else {
		frame, err = h.sessionMgr.Telemetry(ctx, id, driver.Number, lap)
	}
	if err != nil {
		return domainError(err)
	}
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, telemetryResponse{Driver: driver, Lap: lap, Frame: frame})
}

// HandleTelemetryMsgpack returns the telemetry frame in MessagePack format,
// which is considerably smaller than JSON for large laps
func (h *AnalysisHandlerImpl) HandleTelemetryMsgpack(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	driver, lap, frame, err := h.resolveFrame(c, id, "driver", "lap")
	if err != nil {
		return err
	}
	h.sessionMgr.TouchSession(id)

	data, err := msgpack.Marshal(telemetryResponse{Driver: driver, Lap: lap, Frame: frame})
	if err != nil {
		return NewInternalError("encoding msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleExportCSV streams the telemetry frame as CSV and records the export
// as an artifact
func (h *AnalysisHandlerImpl) HandleExportCSV(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	driver, lap, frame, err := h.resolveFrame(c, id, "driver", "lap")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f1data.WriteCSV(&buf, frame); err != nil {
		return NewInternalError("writing CSV", err)
	}

	name := fmt.Sprintf("%s_lap%d.csv", strings.ToLower(driver.Code), lap.Number)
	if _, err := h.store.SaveBytes(name, models.ArtifactCSV, buf.Bytes()); err != nil {
		return NewInternalError("saving export", err)
	}
	h.sessionMgr.TouchSession(id)

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, name))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

type createPlotRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Driver      string `json:"driver"`
	Lap         string `json:"lap"`
	OtherDriver string `json:"otherDriver"`
	OtherLap    string `json:"otherLap"`
	ColorBy     string `json:"colorBy"`
	Inline      bool   `json:"inline"`
}

// HandleCreatePlot renders a chart, stores it as an artifact, and returns
// the artifact metadata (or the PNG itself when inline is set)
func (h *AnalysisHandlerImpl) HandleCreatePlot(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req createPlotRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Driver == "" {
		return NewValidationError("driver")
	}
	kind := plotting.Kind(req.Kind)

	driver, lap, frame, err := h.resolveFrameFromValues(c, id, req.Driver, req.Lap)
	if err != nil {
		return err
	}

	renderReq := plotting.Request{
		Kind:    kind,
		Title:   req.Title,
		Frame:   frame,
		Label:   driver.Code,
		ColorBy: req.ColorBy,
	}
	if renderReq.Title == "" {
		renderReq.Title = fmt.Sprintf("%s lap %d", driver.Code, lap.Number)
	}

	if req.OtherDriver != "" {
		other, _, otherFrame, err := h.resolveFrameFromValues(c, id, req.OtherDriver, req.OtherLap)
		if err != nil {
			return err
		}
		renderReq.Other = otherFrame
		renderReq.OtherLabel = other.Code
	}

	png, err := plotting.Render(renderReq)
	if err != nil {
		switch {
		case errors.Is(err, plotting.ErrUnknownKind):
			return NewBadRequestError("unknown plot kind", err)
		case errors.Is(err, plotting.ErrUnknownChannel):
			return NewBadRequestError("unknown coloring channel", err)
		case errors.Is(err, plotting.ErrMissingSecond):
			return NewValidationError("otherDriver")
		case errors.Is(err, plotting.ErrNoPositionData):
			return NewConflictError(err.Error())
		default:
			return NewInternalError("rendering plot", err)
		}
	}

	name := fmt.Sprintf("%s_%s_lap%d.png", req.Kind, strings.ToLower(driver.Code), lap.Number)
	info, err := h.store.SaveBytes(name, models.ArtifactPlot, png)
	if err != nil {
		return NewInternalError("saving plot", err)
	}
	h.sessionMgr.TouchSession(id)

	if req.Inline {
		return c.Blob(http.StatusOK, "image/png", png)
	}
	return c.JSON(http.StatusCreated, info)
}

// resolveLap resolves a driver code and lap selector to a concrete lap.
func (h *AnalysisHandlerImpl) resolveLap(c echo.Context, id, code, lapValue string) (models.Driver, models.Lap, error) {
	sel, number, err := parseLapSelector(lapValue)
	if err != nil {
		return models.Driver{}, models.Lap{}, NewBadRequestError("invalid lap selector", err)
	}

	driver, err := h.sessionMgr.Driver(id, code)
	if err != nil {
		return models.Driver{}, models.Lap{}, domainError(err)
	}

	laps, err := h.sessionMgr.Laps(c.Request().Context(), id, driver.Number)
	if err != nil {
		return models.Driver{}, models.Lap{}, domainError(err)
	}
	lap, err := f1data.PickLap(laps, sel, number)
	if err != nil {
		return models.Driver{}, models.Lap{}, domainError(err)
	}
	return driver, lap, nil
}

// resolveFrameFromValues is resolveFrame with explicit values instead of
// query params.
func (h *AnalysisHandlerImpl) resolveFrameFromValues(c echo.Context, id, code, lapValue string) (models.Driver, models.Lap, models.TelemetryFrame, error) {
	driver, lap, err := h.resolveLap(c, id, code, lapValue)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}

	frame, err := h.sessionMgr.Telemetry(c.Request().Context(), id, driver.Number, lap)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, domainError(err)
	}
	return driver, lap, frame, nil
}
