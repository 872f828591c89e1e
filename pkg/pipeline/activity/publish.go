package activity

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/socialpulse/pulsex/pkg/pipeline/types"
	"github.com/socialpulse/pulsex/pkg/redis"
)

// PublishRunCompleted announces a finished pipeline run on the Redis pub/sub
// channel. The event carries the per-step outcomes, failed steps included, so
// downstream consumers can tell a clean run from a degraded one. Best effort
// end to end: a run is complete whether or not anyone heard about it.
func (c *Context) PublishRunCompleted(ctx context.Context, run types.RunSummary) error {
	if c.RedisClient == nil {
		return nil
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}

	c.RedisClient.Publish(ctx, redis.RunCompletedChannel, payload)
	c.Logger.Info("Published run completed event",
		zap.String("workflow", run.Workflow),
		zap.String("date", run.AnalysisDate),
		zap.Int("steps", len(run.Steps)))
	return nil
}
