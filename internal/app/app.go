package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/services/logviewer"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/handlers"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/logs"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/audit"
	"github.com/ternarybob/folio/internal/services/content"
	"github.com/ternarybob/folio/internal/services/events"
	"github.com/ternarybob/folio/internal/services/retention"
	"github.com/ternarybob/folio/internal/services/transform"
	"github.com/ternarybob/folio/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	Location       *time.Location
	StorageManager *storage.Manager

	// Event-driven services
	EventService interfaces.EventService

	// Server event log
	ServerLog        *logs.EventQueue
	ServerLogService *logs.Service

	// Site services
	AuditService      *audit.Service
	TransformService  *transform.Service
	ContentService    *content.Service
	RetentionService  *retention.Service
	SystemLogsService *logviewer.Service

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	AuthHandler       *handlers.AuthHandler
	WSHandler         *handlers.WebSocketHandler
	ServerLogsHandler *handlers.ServerLogsHandler
	AuditHandler      *handlers.AuditHandler
	ContentHandler    *handlers.ContentHandler
	WebhookHandler    *handlers.WebhookHandler
	SystemLogsHandler *handlers.SystemLogsHandler
	RetentionHandler  *handlers.RetentionHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe logger to events")
	}

	app.initServerLog()

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	app.ServerLog.Log(models.SourceDatabaseConnector, models.LevelInfo, "Event log storage ready", map[string]interface{}{
		"type": cfg.Storage.Type,
	})
	app.ServerLog.Log(models.SourceSystemMonitor, models.LevelInfo, "Server started", map[string]interface{}{
		"version":     common.GetVersion(),
		"environment": cfg.Environment,
		"go_version":  runtime.Version(),
		"timezone":    loc.String(),
	})

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("timezone", loc.String()).
		Bool("retention_enabled", cfg.Retention.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the partition stores selected by configuration
func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	return nil
}

// initServerLog starts the server event queue and routes SafeGo panics into it
func (a *App) initServerLog() {
	opts := []logs.QueueOption{
		logs.WithLocation(a.Location),
		logs.WithObserver(logs.NewEventPublisher(a.EventService)),
	}
	if a.Config.ServerLog.Echo {
		minLevel := models.EventLevel(a.Config.ServerLog.EchoLevel)
		if !minLevel.IsValid() {
			minLevel = models.LevelInfo
		}
		opts = append(opts, logs.WithObserver(logs.NewConsoleEcho(os.Stdout, minLevel, !a.Config.IsProduction())))
	}

	a.ServerLog = logs.NewEventQueue(a.StorageManager.ServerEvents(), a.Logger, opts...)
	a.ServerLog.Start()
	a.ServerLogService = logs.NewService(a.StorageManager.ServerEvents(), a.Logger)

	queue := a.ServerLog
	common.SetPanicReporter(func(goroutine string, panicVal interface{}, stack string) {
		queue.Enqueue(models.ServerEvent{
			Source:  models.SourceSystemMonitor,
			Level:   models.LevelFatal,
			Message: "Background goroutine panicked: " + goroutine,
			Error: &models.EventError{
				Name:    "panic",
				Message: fmt.Sprintf("%v", panicVal),
				Stack:   stack,
			},
		})
	})
}

// initServices initializes the site services in dependency order
func (a *App) initServices() error {
	a.AuditService = audit.NewService(a.StorageManager.AuditEvents(), a.EventService, a.Logger, a.Location)
	a.TransformService = transform.NewService(a.Logger)
	a.ContentService = content.NewService(a.Config.Content, a.TransformService, a.Logger)

	a.RetentionService = retention.NewService(
		a.Config.Retention,
		[]retention.Target{
			{Name: storage.NamespaceServerLogs, Storage: a.StorageManager.ServerEvents()},
			{Name: storage.NamespaceAuditLogs, Storage: a.StorageManager.AuditEvents()},
		},
		a.ServerLog,
		a.Location,
		a.Logger,
	)
	if err := a.RetentionService.Start(); err != nil {
		return fmt.Errorf("failed to start retention: %w", err)
	}

	logsDir, err := common.LogsDir()
	if err != nil {
		logsDir = "logs"
	}
	a.SystemLogsService = logviewer.NewService(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeFile,
		FileName:   filepath.Join(logsDir, "folio.log"),
		TimeFormat: a.Config.Logging.TimeFormat,
	})

	return nil
}

// initHandlers wires the HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(a.AuditService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, a.Config.WebSocket, a.Config.PingInterval())
	a.ServerLogsHandler = handlers.NewServerLogsHandler(a.ServerLog, a.ServerLogService, a.ServerLog, a.Config.ServerLog, a.Location, a.Logger)
	a.AuditHandler = handlers.NewAuditHandler(a.AuditService, a.ServerLog, a.Location, a.Logger)
	a.ContentHandler = handlers.NewContentHandler(a.ContentService, a.AuditService, a.ServerLog, a.Config.Content.MaxImageSize, a.Logger)
	a.WebhookHandler = handlers.NewWebhookHandler(a.Config.Webhooks.GiscusSecret, a.AuditService, a.ServerLog, a.Logger)
	a.SystemLogsHandler = handlers.NewSystemLogsHandler(a.SystemLogsService, a.Logger)
	a.RetentionHandler = handlers.NewRetentionHandler(a.RetentionService, a.ServerLog, a.Logger)
}

// Close records shutdown, drains the server log and releases resources
func (a *App) Close(ctx context.Context) error {
	if a.RetentionService != nil {
		a.RetentionService.Stop()
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.ServerLog != nil {
		a.ServerLog.Log(models.SourceSystemMonitor, models.LevelInfo, "Server shutting down", nil)
		common.SetPanicReporter(nil)
		if err := a.ServerLog.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Server log did not drain before shutdown deadline")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
