package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// BackfillWorkflow is the frequent reconciliation sweep: seed bootstrap rows
// for entities that have raw data but no processed delta yet. Most sweeps find
// nothing; an event is published only when the sweep actually did something.
func (wc *Context) BackfillWorkflow(ctx workflow.Context) (types.RunSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, wc.activityOptions(5*time.Minute))

	in := types.StepInput{AnalysisDate: analysisDateOf(ctx)}
	ac := wc.ActivityContext

	run := types.RunSummary{
		Workflow:     BackfillWorkflowName,
		AnalysisDate: in.AnalysisDate,
		Steps:        []types.StepResult{runStep(ctx, "backfill_seed", ac.BackfillSeed, in)},
	}

	seed := run.Steps[0]
	if seed.Processed > 0 || seed.Failed {
		if err := workflow.ExecuteActivity(ctx, ac.PublishRunCompleted, run).Get(ctx, nil); err != nil {
			workflow.GetLogger(ctx).Warn("Failed to publish run event", "error", err)
		}
	}

	return run, nil
}
