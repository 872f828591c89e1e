package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/socialpulse/pulsex/pkg/db"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/pipeline/delta"
	"github.com/socialpulse/pulsex/pkg/pipeline/phase"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// ComputePostDeltas turns the latest post snapshot per post into a daily delta
// row dated at the analysis date. Same shape as the profile step, with two
// additions: posts are phase-gated (a weekly-phase post only produces a row on
// Mondays, a monthly-phase post on the 1st, an inactive post never), and the
// daily engagement rate is resolved per row (source-provided rate wins,
// otherwise derived from gained engagements over gained impressions).
func (c *Context) ComputePostDeltas(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	snapshots, dropped, err := c.DB.RecentPostSnapshots(ctx, date.Add(-SnapshotLookback))
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("read post snapshots: %w", err)
	}

	totals, err := c.DB.LatestTotals(ctx, models.EntityPost)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("read post totals: %w", err)
	}

	version := uint64(time.Now().UnixMilli())
	skipped := int64(dropped)
	gated := int64(0)

	deltas := make([]*models.DailyDelta, 0, len(snapshots))
	newTotals := make([]*models.AccumulativeTotal, 0, len(snapshots))
	for _, snap := range snapshots {
		ph := phase.Classify(phase.AgeDays(snap.PostCreatedAt, date))
		if !phase.SampledOn(ph, date) {
			gated++
			continue
		}

		var prev *models.MetricSet
		if t, ok := totals[db.TotalKey{OwnerID: snap.OwnerID, EntityID: snap.PostID}]; ok {
			prev = &t
		}

		gained, bootstrap := delta.Compute(snap.Metrics(), prev)
		if delta.ShouldSkip(gained, bootstrap) {
			skipped++
			continue
		}

		deltas = append(deltas, &models.DailyDelta{
			OwnerID:        snap.OwnerID,
			EntityType:     models.EntityPost,
			EntityID:       snap.PostID,
			Date:           date,
			Gained:         gained,
			EngagementRate: delta.EngagementRate(snap.EngagementRate, gained),
			Phase:          int8(ph),
			Version:        version,
		})
		newTotals = append(newTotals, &models.AccumulativeTotal{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityPost,
			EntityID:   snap.PostID,
			Date:       date,
			Totals:     snap.Metrics(),
			Version:    version,
		})
	}

	if err = c.DB.InsertDailyDeltas(ctx, deltas); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert post deltas: %w", err)
	}
	if err = c.DB.InsertTotals(ctx, newTotals); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert post totals: %w", err)
	}

	out := types.StepOutput{
		Processed:  int64(len(deltas)),
		Skipped:    skipped + gated,
		DurationMs: durationMs(start),
	}

	c.Logger.Info("Computed post deltas",
		zap.String("date", in.AnalysisDate),
		zap.Int64("processed", out.Processed),
		zap.Int64("phaseGated", gated),
		zap.Int64("skipped", skipped),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}
