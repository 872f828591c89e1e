package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/pipeline/phase"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// ApplyPhaseTransitions retags the stored rows of posts that just crossed a
// phase boundary. Candidates are found by creation date: a post that is now
// 1 or 2 days past a boundary must have been created on one of six specific
// dates, so one indexed query per run replaces a full-table age scan. The
// tolerance of two days covers a run that did not happen.
//
// Retagging is per entity and failures are isolated: one bad post logs and
// counts as errored while the rest of the batch proceeds.
func (c *Context) ApplyPhaseTransitions(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	dates := transitionCandidateDates(date)
	refs, err := c.DB.PostsCreatedOn(ctx, dates)
	if err != nil {
		return types.StepOutput{}, fmt.Errorf("find transition candidates: %w", err)
	}

	var out types.StepOutput
	for _, ref := range refs {
		age := phase.AgeDays(ref.PostCreatedAt, date)
		next, ok := phase.Transition(age)
		if !ok {
			out.Skipped++
			continue
		}

		if err = c.DB.RetagEntityPhase(ctx, ref.OwnerID, models.EntityPost, ref.PostID, int8(next)); err != nil {
			out.Errored++
			c.Logger.Error("Failed to retag post phase",
				zap.String("owner_id", ref.OwnerID),
				zap.String("post_id", ref.PostID),
				zap.String("phase", next.String()),
				zap.Error(err))
			continue
		}
		out.Processed++
	}

	out.DurationMs = durationMs(start)

	c.Logger.Info("Applied phase transitions",
		zap.String("date", in.AnalysisDate),
		zap.Int("candidates", len(refs)),
		zap.Int64("retagged", out.Processed),
		zap.Int64("errored", out.Errored),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}

// transitionCandidateDates lists the creation dates a post must have to sit
// 1..tolerance days past one of the three phase boundaries today.
func transitionCandidateDates(analysisDate time.Time) []time.Time {
	boundaries := []int{phase.DailyMaxAgeDays, phase.WeeklyMaxAgeDays, phase.MonthlyMaxAgeDays}
	dates := make([]time.Time, 0, len(boundaries)*phase.TransitionToleranceDays)
	for _, threshold := range boundaries {
		for past := 1; past <= phase.TransitionToleranceDays; past++ {
			dates = append(dates, analysisDate.AddDate(0, 0, -(threshold + past)))
		}
	}
	return dates
}
