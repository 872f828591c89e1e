package workerpipeline

import (
	"context"
	"time"

	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	metricsdb "github.com/socialpulse/pulsex/pkg/db/metrics"
	"github.com/socialpulse/pulsex/pkg/logging"
	"github.com/socialpulse/pulsex/pkg/pipeline/activity"
	"github.com/socialpulse/pulsex/pkg/pipeline/workflow"
	"github.com/socialpulse/pulsex/pkg/redis"
	"github.com/socialpulse/pulsex/pkg/temporal"
	"github.com/socialpulse/pulsex/pkg/utils"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Logger         *zap.Logger
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	err := a.Worker.Start()
	if err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker.
func (a *App) Stop() {
	a.Worker.Stop()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	metricsDb, metricsDbErr := metricsdb.New(ctx, logger)
	if metricsDbErr != nil {
		logger.Fatal("Unable to initialize metrics database", zap.Error(metricsDbErr))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	// Redis is optional: events and the summary mirror degrade to no-ops.
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - run events and summary mirror disabled",
				zap.Error(err))
			redisClient = nil
		}
	}

	activityContext := &activity.Context{
		Logger:                logger,
		DB:                    metricsDb,
		RedisClient:           redisClient,
		TemporalClient:        temporalClient,
		SummaryMaxParallelism: utils.EnvInt("SUMMARY_MAX_PARALLELISM", 0),
	}
	workflowContext := &workflow.Context{
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.PipelineQueue,
		worker.Options{},
	)

	// Register the workflows
	wkr.RegisterWorkflow(workflowContext.DailyRollupWorkflow)
	wkr.RegisterWorkflow(workflowContext.BackfillWorkflow)
	wkr.RegisterWorkflow(workflowContext.SummaryWorkflow)
	// Register all the activities
	wkr.RegisterActivity(activityContext.ComputeProfileDeltas)
	wkr.RegisterActivity(activityContext.ComputePostDeltas)
	wkr.RegisterActivity(activityContext.ComputeWeeklyRollups)
	wkr.RegisterActivity(activityContext.ComputeMonthlyRollups)
	wkr.RegisterActivity(activityContext.ComputeQuarterlyRollups)
	wkr.RegisterActivity(activityContext.ComputeYearlyRollups)
	wkr.RegisterActivity(activityContext.ApplyPhaseTransitions)
	wkr.RegisterActivity(activityContext.BackfillSeed)
	wkr.RegisterActivity(activityContext.PrecomputeSummaries)
	wkr.RegisterActivity(activityContext.PublishRunCompleted)

	dailySpec, err := temporalClient.DailyCronSpec()
	if err != nil {
		logger.Fatal("Invalid daily schedule configuration", zap.Error(err))
	}

	scheduleDefs := []temporal.ScheduleDef{
		{ID: temporalClient.DailyScheduleID, Spec: dailySpec, Workflow: workflow.DailyRollupWorkflowName},
		{ID: temporalClient.BackfillScheduleID, Spec: temporalClient.FiveMinuteSpec(), Workflow: workflow.BackfillWorkflowName},
		{ID: temporalClient.SummaryScheduleID, Spec: temporalClient.FourHourSpec(), Workflow: workflow.SummaryWorkflowName},
	}
	if err = temporalClient.EnsureSchedules(ctx, logger, scheduleDefs); err != nil {
		logger.Fatal("Unable to ensure schedules", zap.Error(err))
	}

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Logger:         logger,
	}
}
