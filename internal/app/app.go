// Package app wires configuration, storage, the pipeline and the scheduler
// into one runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/benchmark"
	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/datasets"
	"github.com/ternarybob/purgo/internal/handlers"
	"github.com/ternarybob/purgo/internal/ingest"
	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/pipeline"
	"github.com/ternarybob/purgo/internal/quality"
	"github.com/ternarybob/purgo/internal/services/scheduler"
	"github.com/ternarybob/purgo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager
	DatasetStore   *datasets.Store
	Orchestrator   *pipeline.Orchestrator
	Scheduler      interfaces.SchedulerService

	APIHandler     *handlers.APIHandler
	DatasetHandler *handlers.DatasetHandler
	BatchHandler   *handlers.BatchHandler

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New builds the application from configuration
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(logger, config)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize state storage: %w", err)
	}

	datasetStore, err := datasets.NewStore(config.Storage.DatasetsDir, logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to initialize dataset storage: %w", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		quality.NewEngine(logger),
		datasetStore,
		benchmark.NewRunner(),
		logger,
	)

	schedulerService := scheduler.NewService(
		storageManager.JobStorage(),
		storageManager.RunStorage(),
		ingest.NewScanner(),
		ingest.NewReader(),
		orchestrator,
		config.Batch.TickInterval(),
		config.Batch.IngestPerSec,
		logger,
	)

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		DatasetStore:   datasetStore,
		Orchestrator:   orchestrator,
		Scheduler:      schedulerService,
		APIHandler:     handlers.NewAPIHandler(),
		DatasetHandler: handlers.NewDatasetHandler(orchestrator, datasetStore, logger),
		BatchHandler:   handlers.NewBatchHandler(schedulerService, logger),
		ctx:            ctx,
		cancelCtx:      cancel,
	}

	return a, nil
}

// Start seeds jobs from files and begins the scheduler poll loop
func (a *App) Start() error {
	if count, err := a.StorageManager.LoadSeedJobs(a.ctx, a.Config.Batch.JobsDir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load seed jobs")
	} else if count > 0 {
		a.Logger.Info().Int("count", count).Msg("Seed jobs loaded")
	}

	return a.Scheduler.Start(a.ctx)
}

// Shutdown stops the scheduler and closes storage
func (a *App) Shutdown() error {
	a.cancelCtx()

	if err := a.Scheduler.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
	}

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close state storage: %w", err)
	}

	a.Logger.Info().Msg("Application shut down")
	return nil
}
