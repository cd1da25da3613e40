package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/handlers"
	"github.com/stephennewman/contextmemo/internal/interfaces"
	"github.com/stephennewman/contextmemo/internal/models"
	"github.com/stephennewman/contextmemo/internal/pipeline"
	"github.com/stephennewman/contextmemo/internal/queue"
	"github.com/stephennewman/contextmemo/internal/services/leases"
	"github.com/stephennewman/contextmemo/internal/services/llm"
	"github.com/stephennewman/contextmemo/internal/services/metrics"
	"github.com/stephennewman/contextmemo/internal/services/notify"
	"github.com/stephennewman/contextmemo/internal/services/publish"
	"github.com/stephennewman/contextmemo/internal/services/scan"
	"github.com/stephennewman/contextmemo/internal/services/scheduler"
	badgerstore "github.com/stephennewman/contextmemo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event plumbing
	Bus        *queue.Bus
	WorkerPool *queue.WorkerPool

	// Automation services
	LeaseService *leases.Service
	Generator    interfaces.Generator
	Scanner      interfaces.ScanProvider
	Publisher    interfaces.Publisher
	Verifier     interfaces.CitationVerifier
	Notifier     interfaces.Notifier
	Pipeline     *pipeline.Pipeline

	// Scheduling
	Evaluator        *scheduler.Evaluator
	Dispatcher       *scheduler.Dispatcher
	CycleRunner      *scheduler.CycleRunner
	MetricsService   *metrics.Service
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	StatusHandler    *handlers.StatusHandler
	TenantHandler    *handlers.TenantHandler
	SchedulerHandler *handlers.SchedulerHandler
	LeaseHandler     *handlers.LeaseHandler

	manager *badgerstore.Manager
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Workers start only after every handler is registered so no event is
	// received before its handler exists
	if err := app.WorkerPool.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}
	app.LeaseService.StartSweeper()

	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		logger.Warn().Msg("Scheduler disabled, automation cycles must be triggered via the API")
	}

	logger.Info().
		Int("workers", cfg.Queue.Concurrency).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.manager = manager
	a.StorageManager = manager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// The bus shares the storage manager's Badger instance; one database
	// holds both domain records and queued events
	bus, err := queue.NewBus(
		a.manager.DB().Store().Badger(),
		a.Config.Queue.QueueName,
		parseDuration(a.Config.Queue.VisibilityTimeout, 5*time.Minute),
		a.Config.Queue.MaxReceive,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	a.Bus = bus
	a.Logger.Debug().Str("queue_name", a.Config.Queue.QueueName).Msg("Event bus initialized")

	a.WorkerPool = queue.NewWorkerPool(
		bus,
		a.Logger,
		a.Config.Queue.Concurrency,
		parseDuration(a.Config.Queue.PollInterval, time.Second),
	)

	leaseTTL, _ := a.Config.LeaseTTL()
	sweepInterval, _ := a.Config.SweepInterval()
	a.LeaseService = leases.NewService(a.StorageManager.Leases(), a.Logger, leaseTTL, sweepInterval)

	a.Generator, err = llm.NewService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	a.Scanner = scan.NewOfflineProvider(a.StorageManager.Results(), a.Logger)
	a.Verifier = scan.NewOfflineVerifier(a.Logger)
	a.Publisher = publish.NewService(a.Logger)
	a.Notifier = notify.NewService(a.StorageManager.Notifications(), a.Logger)

	// A dropped event means its chain died mid-flight; the lease sweeper
	// reclaims the stalled lease and the next cycle re-dispatches, but the
	// tenant still gets an alert about the abandoned run
	bus.SetDropHandler(func(event *interfaces.Event, receiveCount int) {
		notification := &models.Notification{
			TenantID: event.TenantID,
			Kind:     models.NotificationEventDropped,
			Message:  fmt.Sprintf("Automation step %s abandoned after %d delivery attempts", event.Name, receiveCount),
			Data: map[string]string{
				"event":    string(event.Name),
				"event_id": event.ID,
			},
		}
		if err := a.Notifier.Notify(context.Background(), notification); err != nil {
			a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to record dropped event notification")
		}
	})

	stepTimeout, _ := a.Config.StepTimeout()
	retryBackoff, _ := a.Config.RetryBackoff()
	verifyDelay, _ := a.Config.VerifyDelay()

	a.Pipeline = pipeline.New(pipeline.Deps{
		Storage:   a.StorageManager,
		Bus:       bus,
		Leases:    a.LeaseService,
		Generator: a.Generator,
		Scanner:   a.Scanner,
		Publisher: a.Publisher,
		Verifier:  a.Verifier,
		Notifier:  a.Notifier,
		Logger:    a.Logger,
	}, pipeline.Options{
		StepTimeout:     stepTimeout,
		MaxRetries:      a.Config.Automation.MaxRetries,
		RetryBackoff:    retryBackoff,
		VerifyDelay:     verifyDelay,
		TypeConcurrency: a.Config.Automation.TypeConcurrency,
	})
	a.Pipeline.Register(a.WorkerPool)
	a.Logger.Debug().Msg("Pipeline handlers registered")

	refreshInterval, _ := a.Config.RefreshInterval()
	a.Evaluator = scheduler.NewEvaluator(refreshInterval)
	a.Dispatcher = scheduler.NewDispatcher(bus, a.LeaseService, a.Logger)
	a.CycleRunner = scheduler.NewCycleRunner(a.StorageManager, a.Evaluator, a.Dispatcher, a.LeaseService, a.Logger)

	snapshotWindow, _ := a.Config.SnapshotWindow()
	a.MetricsService = metrics.NewService(a.StorageManager, a.Logger, snapshotWindow, a.Config.Automation.TopCompetitors)

	schedulerService := scheduler.NewService(a.Logger)
	if err := schedulerService.RegisterJob("automation-cycle", a.Config.Scheduler.CycleSchedule, func(ctx context.Context) error {
		_, err := a.CycleRunner.RunCycle(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to register cycle job: %w", err)
	}
	if err := schedulerService.RegisterJob("visibility-snapshot", a.Config.Scheduler.SnapshotSchedule, func(ctx context.Context) error {
		_, err := a.MetricsService.Run(ctx, time.Now().UTC())
		return err
	}); err != nil {
		return fmt.Errorf("failed to register snapshot job: %w", err)
	}
	a.SchedulerService = schedulerService
	a.Logger.Debug().
		Str("cycle_schedule", a.Config.Scheduler.CycleSchedule).
		Str("snapshot_schedule", a.Config.Scheduler.SnapshotSchedule).
		Msg("Scheduler jobs registered")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.StatusHandler = handlers.NewStatusHandler(a.Config, a.StorageManager, a.Logger)
	a.TenantHandler = handlers.NewTenantHandler(a.StorageManager, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
	a.LeaseHandler = handlers.NewLeaseHandler(a.LeaseService, a.Logger)
	return nil
}

// Close closes all application resources in reverse dependency order
func (a *App) Close() error {
	if a.SchedulerService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.SchedulerService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop worker pool")
		}
	}

	if a.LeaseService != nil {
		a.LeaseService.StopSweeper()
	}

	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event bus")
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

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
