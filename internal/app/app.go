package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/services/logviewer"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/handlers"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/services/graph"
	"github.com/ternarybob/quanta/internal/services/graphrag"
	"github.com/ternarybob/quanta/internal/services/ingest"
	"github.com/ternarybob/quanta/internal/services/llm"
	"github.com/ternarybob/quanta/internal/services/mcp"
	"github.com/ternarybob/quanta/internal/services/scheduler"
	badgerstore "github.com/ternarybob/quanta/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Core services
	GraphService     interfaces.GraphService
	LLMService       interfaces.LLMService
	PipelineService  interfaces.PipelineService
	IngestService    interfaces.IngestService
	SchedulerService interfaces.SchedulerService

	// Log file viewer backing /api/logs/recent; nil when file logging is off
	LogViewer *logviewer.Service

	// HTTP handlers
	QueryHandler  *handlers.QueryHandler
	GraphHandler  *handlers.GraphHandler
	IngestHandler *handlers.IngestHandler
	CacheHandler  *handlers.CacheHandler
	AuditHandler  *handlers.AuditHandler
	SystemHandler *handlers.SystemHandler
	MCPHandler    *handlers.MCPHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initLogViewer()
	app.initHandlers()

	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// A startup refresh populates an empty graph without waiting for the
	// nightly schedule. It runs in the background so a slow provider does
	// not block serving.
	if cfg.Ingest.OnStartup {
		common.SafeGo(logger, "startupRefresh", func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := app.IngestService.Refresh(refreshCtx, nil, false, ingest.TriggerStartup); err != nil {
				logger.Warn().Err(err).Msg("Startup holdings refresh failed")
			}
		})
	}

	logger.Info().
		Str("llm_provider", string(cfg.LLM.Provider)).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the embedded Badger store
func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = manager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order:
// graph, llm (audited against storage), pipeline, ingest, scheduler.
func (a *App) initServices(ctx context.Context) error {
	graphService, err := graph.NewNeo4jService(ctx, &a.Config.Graph, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to graph: %w", err)
	}
	a.GraphService = graphService

	llmService, err := llm.NewLLMService(ctx, &a.Config.LLM, a.StorageManager.Audit(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}
	a.LLMService = llmService

	a.PipelineService = graphrag.NewPipeline(a.GraphService, a.LLMService, &a.Config.Pipeline, a.Logger)

	ingestService, err := ingest.NewService(&a.Config.Ingest, a.GraphService, a.StorageManager.Snapshots(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}
	a.IngestService = ingestService

	a.SchedulerService = scheduler.NewService(&a.Config.Scheduler, a.IngestService, a.StorageManager, a.Logger)

	return nil
}

// initLogViewer points a file log reader at the same file the logger writes
func (a *App) initLogViewer() {
	hasFileOutput := false
	for _, output := range a.Config.Logging.Output {
		if output == "file" {
			hasFileOutput = true
		}
	}
	if !hasFileOutput {
		return
	}

	execPath, err := os.Executable()
	var logsDir string
	if err == nil {
		logsDir = filepath.Join(filepath.Dir(execPath), "logs")
	} else {
		logsDir = "logs"
	}

	a.LogViewer = logviewer.NewService(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeFile,
		FileName:   filepath.Join(logsDir, "quanta.log"),
		TimeFormat: "15:04:05",
	})
	a.Logger.Debug().Str("logs_dir", logsDir).Msg("Log viewer initialized")
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.QueryHandler = handlers.NewQueryHandler(a.PipelineService, a.Logger)
	a.GraphHandler = handlers.NewGraphHandler(a.PipelineService, a.Logger)
	a.IngestHandler = handlers.NewIngestHandler(a.IngestService, a.SchedulerService, a.Logger)
	a.CacheHandler = handlers.NewCacheHandler(a.PipelineService, a.Logger)
	a.AuditHandler = handlers.NewAuditHandler(a.StorageManager.Audit(), a.Logger)
	a.SystemHandler = handlers.NewSystemHandler(a.GraphService, a.LLMService, a.StorageManager, a.LogViewer, a.Logger)
	a.MCPHandler = handlers.NewMCPHandler(mcp.NewQueryService(a.PipelineService, a.Logger), a.Logger)
}

// Close shuts down all services in reverse dependency order
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.GraphService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.GraphService.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close graph connection")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
