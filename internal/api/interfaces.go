// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/f1-visualizer/backend/internal/models"
)

// ScheduleHandler handles calendar lookups.
type ScheduleHandler interface {
	HandleGetTracks(c echo.Context) error
	HandleGetSessionCodes(c echo.Context) error
}

// SessionHandler handles analysis session lifecycle operations.
type SessionHandler interface {
	HandleStartSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleSessionStatus(c echo.Context) error
	HandleSessionProgressStream(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleGetDrivers(c echo.Context) error
	HandleGetLaps(c echo.Context) error
}

// AnalysisHandler handles telemetry, statistics, plots and exports.
type AnalysisHandler interface {
	HandleAnalyze(c echo.Context) error
	HandleTelemetry(c echo.Context) error
	HandleTelemetryMsgpack(c echo.Context) error
	HandleExportCSV(c echo.Context) error
	HandleCreatePlot(c echo.Context) error
}

// FilesHandler handles generated artifact operations.
type FilesHandler interface {
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDownloadFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// HealthHandler handles health check operations.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the session operations the handlers need.
// This allows mocking in tests.
type SessionManager interface {
	StartSession(year int, track, code string) (*models.AnalysisSession, error)
	GetSession(id string) (*models.AnalysisSession, bool)
	List() []*models.AnalysisSession
	TouchSession(id string) bool
	Delete(id string) bool
	Drivers(id string) ([]models.Driver, error)
	Driver(id, code string) (models.Driver, error)
	Laps(ctx context.Context, id string, driverNumber int) ([]models.Lap, error)
	Telemetry(ctx context.Context, id string, driverNumber int, lap models.Lap) (models.TelemetryFrame, error)
	TelemetryRange(ctx context.Context, id string, driverNumber int, lap models.Lap, minDist, maxDist float64) (models.TelemetryFrame, error)
}

// ScheduleProvider resolves the event calendar for a year.
type ScheduleProvider interface {
	Schedule(ctx context.Context, year int) ([]models.Event, error)
}
