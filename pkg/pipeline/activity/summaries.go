package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/pipeline/period"
	"github.com/socialpulse/pulsex/pkg/pipeline/summary"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
	"github.com/socialpulse/pulsex/pkg/redis"
)

// historyDays covers the longest summary window plus its comparison window.
const historyDays = 730

// summaryCacheTTL outlives the recompute interval so the Redis mirror never
// expires between runs.
const summaryCacheTTL = 6 * time.Hour

// PrecomputeSummaries rebuilds the summary cache for every owner: one entry
// per (owner, metric, period window). Owners are fanned out over the shared
// worker pool and isolated from each other; one owner's bad history logs and
// counts as errored while the rest complete.
func (c *Context) PrecomputeSummaries(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	owners, err := c.DB.Owners(ctx)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("list owners: %w", err)
	}

	processed := xsync.NewCounter()
	errored := xsync.NewCounter()

	pool := c.summaryWorkerPool()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, ownerID := range owners {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			if err := c.precomputeOwner(groupCtx, ownerID, date); err != nil {
				errored.Inc()
				c.Logger.Error("Failed to precompute owner summaries",
					zap.String("owner_id", ownerID),
					zap.Error(err))
				return
			}
			processed.Inc()
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		c.Logger.Warn("Summary pool finished with error", zap.Error(err))
	}
	if ctx.Err() != nil {
		return types.StepOutput{}, ctx.Err()
	}

	out := types.StepOutput{
		Processed:  processed.Value(),
		Errored:    errored.Value(),
		DurationMs: durationMs(start),
	}

	c.Logger.Info("Precomputed summaries",
		zap.String("date", in.AnalysisDate),
		zap.Int("owners", len(owners)),
		zap.Int64("processed", out.Processed),
		zap.Int64("errored", out.Errored),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}

func (c *Context) precomputeOwner(ctx context.Context, ownerID string, date time.Time) error {
	history, err := c.DB.OwnerDeltaHistory(ctx, ownerID, date.AddDate(0, 0, -(historyDays-1)))
	if err != nil {
		return fmt.Errorf("delta history: %w", err)
	}

	cumulative, err := c.DB.OwnerCumulativeTotals(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("cumulative totals: %w", err)
	}

	now := time.Now()
	entries := make([]*models.SummaryEntry, 0, len(models.SummaryPeriods)*len(models.MetricNames))
	for periodName, days := range models.SummaryPeriods {
		curStart, curEnd, compStart, compEnd := period.Window(days, date)

		for _, metric := range models.MetricNames {
			current := pointsInWindow(history, metric, curStart, curEnd)
			comparison := pointsInWindow(history, metric, compStart, compEnd)
			cum := float64(cumulative.Value(metric))

			entry := summary.Compute(ownerID, metric, periodName, current, comparison, &cum, now)
			entries = append(entries, &entry)
		}
	}

	if err = c.DB.InsertSummaries(ctx, entries); err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}

	c.mirrorSummaries(ctx, entries)
	return nil
}

// mirrorSummaries copies the freshly computed entries into Redis. Best effort:
// the ClickHouse rows are the recomputable source and a cold mirror only costs
// read latency.
func (c *Context) mirrorSummaries(ctx context.Context, entries []*models.SummaryEntry) {
	if c.RedisClient == nil {
		return
	}
	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		key := redis.SummaryKey(entry.OwnerID, entry.Metric, entry.Period)
		c.RedisClient.CacheSummary(ctx, key, payload, summaryCacheTTL)
	}
}

// pointsInWindow extracts one metric's date-ascending points falling inside
// the inclusive [start, end] window. Days without data yield no point; the
// summary layer works off point counts, not calendar length.
func pointsInWindow(history []models.DeltaPoint, metric string, start, end time.Time) []summary.Point {
	points := make([]summary.Point, 0, len(history))
	for i := range history {
		d := history[i].Date
		if d.Before(start) || d.After(end) {
			continue
		}
		points = append(points, summary.Point{
			Date:  d,
			Value: float64(history[i].Metrics().Value(metric)),
		})
	}
	return points
}
