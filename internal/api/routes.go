// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f1-visualizer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	Schedule   ScheduleProvider
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Schedule  ScheduleHandler
	Session   SessionHandler
	Analysis  AnalysisHandler
	Files     FilesHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Schedule:  NewScheduleHandler(deps.Schedule),
		Session:   NewSessionHandler(deps.SessionMgr),
		Analysis:  NewAnalysisHandler(deps.Store, deps.SessionMgr),
		Files:     NewFilesHandler(deps.Store),
		WebSocket: NewWebSocketHandler(deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health and metrics
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Calendar routes
	e.GET("/api/tracks/:year", handlers.Schedule.HandleGetTracks)
	e.GET("/api/session-codes", handlers.Schedule.HandleGetSessionCodes)

	// Analysis session routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.POST("", handlers.Session.HandleStartSession)
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:id", handlers.Session.HandleSessionStatus)
	sessionGroup.GET("/:id/progress", handlers.Session.HandleSessionProgressStream)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessionGroup.GET("/:id/drivers", handlers.Session.HandleGetDrivers)
	sessionGroup.GET("/:id/laps", handlers.Session.HandleGetLaps)

	// Telemetry and statistics routes
	sessionGroup.GET("/:id/analysis", handlers.Analysis.HandleAnalyze)
	sessionGroup.GET("/:id/telemetry", handlers.Analysis.HandleTelemetry)
	sessionGroup.GET("/:id/telemetry/msgpack", handlers.Analysis.HandleTelemetryMsgpack)
	sessionGroup.GET("/:id/export", handlers.Analysis.HandleExportCSV)
	sessionGroup.POST("/:id/plots", handlers.Analysis.HandleCreatePlot)

	// Artifact routes
	filesGroup := e.Group("/api/files")
	filesGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	filesGroup.GET("/:id", handlers.Files.HandleGetFile)
	filesGroup.GET("/:id/download", handlers.Files.HandleDownloadFile)
	filesGroup.PUT("/:id", handlers.Files.HandleRenameFile)
	filesGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/sessions", handlers.WebSocket.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
