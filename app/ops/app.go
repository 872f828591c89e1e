package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/socialpulse/pulsex/app/ops/types"
	metricsdb "github.com/socialpulse/pulsex/pkg/db/metrics"
	"github.com/socialpulse/pulsex/pkg/logging"
	"github.com/socialpulse/pulsex/pkg/redis"
	"github.com/socialpulse/pulsex/pkg/temporal"
	"github.com/socialpulse/pulsex/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
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

	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - summary fast path disabled", zap.Error(err))
			redisClient = nil
		}
	}

	return &types.App{
		MetricsDB:      metricsDb,
		TemporalClient: temporalClient,
		RedisClient:    redisClient,
		Logger:         logger,
	}
}
