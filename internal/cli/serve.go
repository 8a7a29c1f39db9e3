package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/api"
	"github.com/f1-visualizer/backend/internal/config"
	"github.com/f1-visualizer/backend/internal/log"
	"github.com/f1-visualizer/backend/internal/session"
	"github.com/f1-visualizer/backend/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the telemetry analysis HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()
	logger := log.L()

	loader, err := newLoader(cfg)
	if err != nil {
		return fmt.Errorf("initializing provider client: %w", err)
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("initializing artifact store: %w", err)
	}

	sessionMgr := session.NewManager(loader, cfg.Storage.TempDir, cfg.Sessions.MaxSessions)
	defer sessionMgr.Shutdown()

	// Background session cleanup
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Sessions.CleanupMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(time.Duration(cfg.Sessions.TimeoutMinutes) * time.Minute)
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				path == "/health" ||
				path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Accept") == "text/event-stream" ||
				strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.SetupMiddleware(e)
	handlers := api.NewHandlers(&api.Dependencies{
		Store:      fileStore,
		SessionMgr: sessionMgr,
		Schedule:   loader,
		Version:    Version,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	s := &http.Server{
		Addr:         cfg.ServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("server starting",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("listen", cfg.ServerAddr()),
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("artifacts", cfg.Storage.ArtifactsDir))

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
