package activity

import (
	"context"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/socialpulse/pulsex/pkg/db"
	"github.com/socialpulse/pulsex/pkg/pipeline/period"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// The rollup steps are set-based: each one is a single INSERT..SELECT that
// re-aggregates the current period from its source tier and upserts the
// result. Weekly and monthly re-sum from daily deltas; quarterly and yearly
// re-sum from the monthly tier. A finalized period row is never overwritten
// (the store's anti-join guard enforces that), so late recomputes are safe.

func (c *Context) ComputeWeeklyRollups(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	return c.computeRollup(ctx, in, period.Weekly)
}

func (c *Context) ComputeMonthlyRollups(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	return c.computeRollup(ctx, in, period.Monthly)
}

func (c *Context) ComputeQuarterlyRollups(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	return c.computeRollup(ctx, in, period.Quarterly)
}

func (c *Context) ComputeYearlyRollups(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	return c.computeRollup(ctx, in, period.Yearly)
}

func (c *Context) computeRollup(ctx context.Context, in types.StepInput, g period.Granularity) (types.StepOutput, error) {
	start := time.Now()

	date, err := analysisDate(in)
	if err != nil {
		return types.StepOutput{}, err
	}

	pass := db.RollupPass{
		Granularity:  string(g),
		PeriodStart:  period.Start(g, date),
		AnalysisDate: date,
		Finalize:     period.IsEnd(g, date),
	}

	if err = c.DB.ComputeRollup(ctx, pass); err != nil {
		return types.StepOutput{}, sdktemporal.NewApplicationErrorWithCause(
			"rollup pass failed", "rollup_"+pass.Granularity+"_failed", err)
	}

	out := types.StepOutput{DurationMs: durationMs(start)}

	c.Logger.Info("Computed rollups",
		zap.String("granularity", pass.Granularity),
		zap.String("date", in.AnalysisDate),
		zap.Time("periodStart", pass.PeriodStart),
		zap.Bool("finalize", pass.Finalize),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}
