package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// DailyRollupWorkflow is the main scheduled run: deltas for both entity
// types, the four rollup tiers, then phase transitions. Steps run strictly
// in order since each tier reads what the previous steps wrote, but a failed
// step only degrades the run; later steps still execute against whatever
// state exists and the published event reports the failure.
func (wc *Context) DailyRollupWorkflow(ctx workflow.Context) (types.RunSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, wc.activityOptions(10*time.Minute))

	in := types.StepInput{AnalysisDate: analysisDateOf(ctx)}
	ac := wc.ActivityContext

	steps := []struct {
		name string
		fn   interface{}
	}{
		{"profile_deltas", ac.ComputeProfileDeltas},
		{"post_deltas", ac.ComputePostDeltas},
		{"weekly_rollups", ac.ComputeWeeklyRollups},
		{"monthly_rollups", ac.ComputeMonthlyRollups},
		{"quarterly_rollups", ac.ComputeQuarterlyRollups},
		{"yearly_rollups", ac.ComputeYearlyRollups},
		{"phase_transitions", ac.ApplyPhaseTransitions},
	}

	run := types.RunSummary{
		Workflow:     DailyRollupWorkflowName,
		AnalysisDate: in.AnalysisDate,
		Steps:        make([]types.StepResult, 0, len(steps)),
	}
	for _, step := range steps {
		run.Steps = append(run.Steps, runStep(ctx, step.name, step.fn, in))
	}

	if err := workflow.ExecuteActivity(ctx, ac.PublishRunCompleted, run).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish run event", "error", err)
	}

	return run, nil
}
