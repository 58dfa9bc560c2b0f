package worker

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/dispatch"
	"github.com/defi-space/indexer/pkg/logging"
	"github.com/defi-space/indexer/pkg/metrics"
	"github.com/defi-space/indexer/pkg/oracle"
	"github.com/defi-space/indexer/pkg/projection"
	"github.com/defi-space/indexer/pkg/redis"
	"github.com/defi-space/indexer/pkg/store/clickhouse"
	"github.com/defi-space/indexer/pkg/utils"
	"github.com/defi-space/indexer/pkg/worker/activity"
	"github.com/defi-space/indexer/pkg/worker/workflow"

	temporalclient "github.com/defi-space/indexer/pkg/temporal"
)

type App struct {
	Worker         worker.Worker
	Consumer       *dispatch.Consumer
	TemporalClient *temporalclient.Client
	DB             *clickhouse.DB
	RedisClient    *redis.Client

	// Cron periodically reports stream depth so stuck consumers are visible.
	Cron     *cron.Cron
	CronSpec string

	Logger *zap.Logger
}

// Start starts the metrics worker and the event consumer, then blocks until
// the context is cancelled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}

	go func() {
		if err := a.Consumer.Run(ctx); err != nil {
			a.Logger.Error("Event consumer stopped", zap.Error(err))
		}
	}()

	a.Cron.Start()
	a.Logger.Info("Cron started", zap.String("cronSpec", a.CronSpec))

	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and closes connections.
func (a *App) Stop() {
	a.Worker.Stop()
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}

	if err := a.RedisClient.Close(); err != nil {
		a.Logger.Error("Failed to close Redis connection", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("Worker stopped")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	db, dbErr := clickhouse.New(ctx, logger)
	if dbErr != nil {
		logger.Fatal("Unable to initialize database", zap.Error(dbErr))
	}

	redisClient, redisErr := redis.NewClient(ctx, logger)
	if redisErr != nil {
		logger.Fatal("Unable to initialize Redis client", zap.Error(redisErr))
	}

	temporalClient, tErr := temporalclient.NewClient(ctx, logger)
	if tErr != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(tErr))
	}

	engine := metrics.NewEngine(logger, db, oracle.NewClient(logger))

	activityContext := &activity.Context{
		Logger:      logger,
		Store:       db,
		Engine:      engine,
		RedisClient: redisClient,
	}
	workflowContext := workflow.Context{
		ActivityContext: activityContext,
		TemporalClient:  temporalClient,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.GetMetricsQueue(),
		worker.Options{
			MaxConcurrentWorkflowTaskPollers: 10,
			MaxConcurrentActivityTaskPollers: 10,
			WorkerStopTimeout:                1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.RecalculateAmmMetrics,
		temporalworkflow.RegisterOptions{Name: temporalclient.AmmMetricsWorkflowName},
	)
	wkr.RegisterWorkflowWithOptions(
		workflowContext.RecalculateFarmingMetrics,
		temporalworkflow.RegisterOptions{Name: temporalclient.FarmingMetricsWorkflowName},
	)
	wkr.RegisterWorkflowWithOptions(
		workflowContext.FullRecalculation,
		temporalworkflow.RegisterOptions{Name: temporalclient.FullRecalcWorkflowName},
	)

	wkr.RegisterActivity(activityContext.RecalculateAmm)
	wkr.RegisterActivity(activityContext.RecalculateFarming)

	trigger := temporalclient.NewTrigger(logger, temporalClient)
	registrar := dispatch.NewRedisRegistrar(logger, redisClient)
	projector := projection.New(logger, db, registrar, trigger)
	consumer := dispatch.NewConsumer(logger, redisClient, projector)

	app := &App{
		Worker:         wkr,
		Consumer:       consumer,
		TemporalClient: temporalClient,
		DB:             db,
		RedisClient:    redisClient,
		Logger:         logger,
	}

	if err := app.EnsureFullRecalcSchedule(ctx); err != nil {
		logger.Fatal("Unable to ensure full recalculation schedule", zap.Error(err))
	}

	app.CronSpec = utils.Env("MONITOR_CRON", "@every 1m")
	if err := app.SetupScheduler(ctx, cron.DefaultLogger, app.CronSpec); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}

	return app
}

// SetupScheduler sets up the cron scheduler for stream monitoring.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger, cronSpec string) error {
	a.Cron = cron.New(cron.WithChain(cron.Recover(logger)))

	_, err := a.Cron.AddFunc(cronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		a.reportStreamDepth(rctx)
	})
	return err
}

// reportStreamDepth logs the decoded and dead-letter stream lengths.
func (a *App) reportStreamDepth(ctx context.Context) {
	decoded, err := a.RedisClient.XLen(ctx, redis.DecodedEventsStream)
	if err != nil {
		a.Logger.Warn("Failed to read decoded stream length", zap.Error(err))
		return
	}
	dead, err := a.RedisClient.XLen(ctx, dispatch.DeadLetterStream)
	if err != nil {
		a.Logger.Warn("Failed to read dead-letter stream length", zap.Error(err))
		return
	}

	a.Logger.Info("Stream depth",
		zap.Int64("decoded", decoded),
		zap.Int64("dead_letter", dead))
}

// EnsureFullRecalcSchedule creates the hourly full-recalculation schedule if
// it does not already exist. The periodic pass repairs metrics for entities
// whose triggers were lost.
func (a *App) EnsureFullRecalcSchedule(ctx context.Context) error {
	id := a.TemporalClient.GetFullRecalcScheduleID()
	h := a.TemporalClient.TSClient.GetHandle(ctx, id)
	_, err := h.Describe(ctx)
	if err == nil {
		a.Logger.Info("Full recalculation schedule already exists", zap.String("id", id))
		return nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		a.Logger.Info("Creating full recalculation schedule", zap.String("id", id))
		_, scheduleErr := a.TemporalClient.TSClient.Create(
			ctx,
			client.ScheduleOptions{
				ID:   id,
				Spec: a.TemporalClient.OneHourSpec(),
				Action: &client.ScheduleWorkflowAction{
					Workflow:                 temporalclient.FullRecalcWorkflowName,
					TaskQueue:                a.TemporalClient.GetMetricsQueue(),
					WorkflowExecutionTimeout: 10 * time.Minute,
					WorkflowTaskTimeout:      2 * time.Minute,
				},
			},
		)
		return scheduleErr
	}
	return err
}
