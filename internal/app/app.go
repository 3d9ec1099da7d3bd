package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"

	"UpdateSentinel/internal/config"
	"UpdateSentinel/internal/infrastructure/email"
	"UpdateSentinel/internal/infrastructure/fetch"
	"UpdateSentinel/internal/infrastructure/httpapi"
	"UpdateSentinel/internal/infrastructure/llm"
	"UpdateSentinel/internal/infrastructure/scheduler"
	"UpdateSentinel/internal/infrastructure/storage"
	"UpdateSentinel/internal/logging"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
	"UpdateSentinel/internal/usecase"
)

// Application wires configuration into adapters, workers, schedulers,
// and the HTTP surface, and owns their lifecycle.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db       *sql.DB
	store    ports.Store
	queues   *queue.Set
	schedule *usecase.Schedule
	server   *fiber.App

	runWorkers func(ctx context.Context, wg *sync.WaitGroup)
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: logger}

	if cfg.Database.DSN == "" || cfg.Database.DSN == "memory" {
		a.store = storage.NewMemory()
		logger.Info("using in-process storage")
	} else {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		a.store = storage.NewPostgres(db)
	}

	fetcher := fetch.New(nil, logger)
	llmClient := llm.NewClient(cfg.OpenAI)
	a.queues = queue.NewSet(cfg.Monitoring.QueueSize)

	monitor := usecase.NewMonitor(usecase.MonitorDeps{
		Store:        a.store,
		Fetcher:      fetcher,
		Summarizer:   llmClient,
		Queues:       a.queues,
		Logger:       logger,
		FetchTimeout: cfg.Monitoring.FetchTimeout(),
		ManualProbe:  cfg.Monitoring.ManualRunMode != config.ManualRunFull,
	})

	classifier := usecase.NewClassifier(a.store, llmClient, a.queues, logger)
	generator := usecase.NewTaskGenerator(a.store, llmClient, logger, cfg.Scheduler.Location())

	var mailer ports.Mailer
	if cfg.Alerts.Endpoint != "" {
		mailer = email.NewMailer(cfg.Alerts)
	}
	alerter := usecase.NewAlerter(a.store, mailer, logger, cfg.Alerts.To)

	classifyWorker := queue.NewWorker(a.queues.Classify, classifier.HandleClassify, logger, cfg.Monitoring.MaxRetries)
	taskWorker := queue.NewWorker(a.queues.Tasks, generator.HandleTaskGen, logger, cfg.Monitoring.MaxRetries)
	alertWorker := queue.NewWorker(a.queues.Alerts, alerter.HandleAlert, logger, cfg.Monitoring.MaxRetries)

	a.runWorkers = func(ctx context.Context, wg *sync.WaitGroup) {
		wg.Add(3)
		go func() { defer wg.Done(); classifyWorker.Run(ctx) }()
		go func() { defer wg.Done(); taskWorker.Run(ctx) }()
		go func() { defer wg.Done(); alertWorker.Run(ctx) }()
	}

	location := cfg.Scheduler.Location()
	daily, err := scheduler.NewDaily(cfg.Scheduler.DailyAt, location)
	if err != nil {
		return nil, fmt.Errorf("daily schedule: %w", err)
	}
	weekday, err := scheduler.ParseWeekday(cfg.Scheduler.WeeklyDay)
	if err != nil {
		return nil, fmt.Errorf("weekly schedule: %w", err)
	}
	weekly, err := scheduler.NewWeekly(weekday, cfg.Scheduler.WeeklyAt, location)
	if err != nil {
		return nil, fmt.Errorf("weekly schedule: %w", err)
	}
	a.schedule = usecase.NewSchedule(daily, weekly, monitor, alerter, logger)

	a.server = httpapi.NewServer(a.store, monitor, a.queues, logger)
	return a, nil
}

// Run starts the workers, the schedulers, and the HTTP listener, then
// blocks until the context is cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if pg, ok := a.store.(*storage.Postgres); ok {
		schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(schemaCtx); err != nil {
			return err
		}
	}

	var workers sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	a.runWorkers(workerCtx, &workers)

	if err := a.schedule.Start(ctx); err != nil {
		return fmt.Errorf("start schedule: %w", err)
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.server.Listen(a.cfg.HTTP.Addr)
	}()
	a.logger.Info("listening", "addr", a.cfg.HTTP.Addr)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-listenErr:
		runErr = err
	}

	a.shutdown(&workers)
	return runErr
}

// shutdown stops intake first, then drains: scheduler off, HTTP down,
// queues closed, workers finish what is buffered.
func (a *Application) shutdown(workers *sync.WaitGroup) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.schedule.Stop(stopCtx); err != nil {
		a.logger.Error("stop schedule", "error", err)
	}
	if err := a.server.ShutdownWithContext(stopCtx); err != nil {
		a.logger.Error("shutdown http", "error", err)
	}

	a.queues.Close()
	workers.Wait()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("close database", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
}
