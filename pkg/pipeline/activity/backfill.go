package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/pipeline/delta"
	"github.com/socialpulse/pulsex/pkg/pipeline/phase"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// BackfillSeed reconciles entities that have raw snapshots but no non-zero
// daily delta yet: entities captured for the first time between runs, or whose
// bootstrap write was lost. Each candidate gets a bootstrap delta carrying its
// full current value plus a totals baseline, after which the regular delta
// steps take over.
//
// Post bootstraps are dated at the post's creation date so the gained amounts
// land in the periods that actually earned them; profile bootstraps are dated
// at the analysis date since profiles have no meaningful creation date here.
func (c *Context) BackfillSeed(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	version := uint64(time.Now().UnixMilli())

	posts, err := c.DB.PostBackfillCandidates(ctx)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("post backfill candidates: %w", err)
	}

	deltas := make([]*models.DailyDelta, 0, len(posts))
	totals := make([]*models.AccumulativeTotal, 0, len(posts))
	for _, snap := range posts {
		gained, _ := delta.Compute(snap.Metrics(), nil)
		seedDate := phase.DateOf(snap.PostCreatedAt)
		ph := phase.Classify(phase.AgeDays(snap.PostCreatedAt, date))

		deltas = append(deltas, &models.DailyDelta{
			OwnerID:        snap.OwnerID,
			EntityType:     models.EntityPost,
			EntityID:       snap.PostID,
			Date:           seedDate,
			Gained:         gained,
			EngagementRate: delta.EngagementRate(snap.EngagementRate, gained),
			Phase:          int8(ph),
			Version:        version,
		})
		totals = append(totals, &models.AccumulativeTotal{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityPost,
			EntityID:   snap.PostID,
			Date:       seedDate,
			Totals:     snap.Metrics(),
			Version:    version,
		})
	}

	profiles, err := c.DB.ProfileBackfillCandidates(ctx)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("profile backfill candidates: %w", err)
	}

	for _, snap := range profiles {
		gained, _ := delta.Compute(snap.Metrics(), nil)

		deltas = append(deltas, &models.DailyDelta{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityProfile,
			EntityID:   snap.OwnerID,
			Date:       date,
			Gained:     gained,
			Phase:      int8(phase.Daily),
			Version:    version,
		})
		totals = append(totals, &models.AccumulativeTotal{
			OwnerID:    snap.OwnerID,
			EntityType: models.EntityProfile,
			EntityID:   snap.OwnerID,
			Date:       date,
			Totals:     snap.Metrics(),
			Version:    version,
		})
	}

	if err = c.DB.InsertDailyDeltas(ctx, deltas); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert backfill deltas: %w", err)
	}
	if err = c.DB.InsertTotals(ctx, totals); err != nil {
		return types.StepOutput{}, fmt.Errorf("insert backfill totals: %w", err)
	}

	out := types.StepOutput{
		Processed:  int64(len(deltas)),
		DurationMs: durationMs(start),
	}

	if out.Processed > 0 {
		c.Logger.Info("Seeded backfill rows",
			zap.String("date", in.AnalysisDate),
			zap.Int("posts", len(posts)),
			zap.Int("profiles", len(profiles)),
			zap.Float64("durationMs", out.DurationMs))
	}

	return out, nil
}
