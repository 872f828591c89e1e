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

// ComputeProfileDeltas turns the latest profile snapshot per owner into a
// daily delta row dated at the analysis date.
//
// Core algorithm:
// 1. Read the latest raw snapshot per profile captured within the lookback
// 2. Read the last known accumulative totals per profile in one query
// 3. gained = snapshot - totals; first-ever profiles bootstrap with the full value
// 4. Unchanged profiles (all-zero gain, prior totals exist) produce no row
// 5. Batch-upsert the delta rows and the new totals baseline
//
// Profiles are always in the daily phase: an account outliving its posts keeps
// being sampled every run.
func (c *Context) ComputeProfileDeltas(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	snapshots, dropped, err := c.DB.RecentProfileSnapshots(ctx, date.Add(-SnapshotLookback))
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("read profile snapshots: %w", err)
	}

	totals, err := c.DB.LatestTotals(ctx, models.EntityProfile)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("read profile totals: %w", err)
	}

	version := uint64(time.Now().UnixMilli())
	skipped := int64(dropped)

	deltas := make([]*models.DailyDelta, 0, len(snapshots))
	newTotals := make([]*models.AccumulativeTotal, 0, len(snapshots))
	for _, snap := range snapshots {
		var prev *models.MetricSet
		if t, ok := totals[db.TotalKey{OwnerID: snap.OwnerID, EntityID: snap.OwnerID}]; ok {
			prev = &t
		}

		gained, bootstrap := delta.Compute(snap.Metrics(), prev)
		if delta.ShouldSkip(gained, bootstrap) {
			skipped++
			continue
		}

		deltas = append(deltas, &models.DailyDelta{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityProfile,
			EntityID:   snap.OwnerID,
			Date:       date,
			Gained:     gained,
			Phase:      int8(phase.Daily),
			Version:    version,
		})
		newTotals = append(newTotals, &models.AccumulativeTotal{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityProfile,
			EntityID:   snap.OwnerID,
			Date:       date,
			Totals:     snap.Metrics(),
			Version:    version,
		})
	}

	if err = c.DB.InsertDailyDeltas(ctx, deltas); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert profile deltas: %w", err)
	}
	if err = c.DB.InsertTotals(ctx, newTotals); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert profile totals: %w", err)
	}

	out := types.StepOutput{
		Processed:  int64(len(deltas)),
		Skipped:    skipped,
		DurationMs: durationMs(start),
	}

	c.Logger.Info("Computed profile deltas",
		zap.String("date", in.AnalysisDate),
		zap.Int64("processed", out.Processed),
		zap.Int64("skipped", out.Skipped),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}
