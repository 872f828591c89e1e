package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// SummaryWorkflow rebuilds the precomputed summary cache for every owner.
// Runs on its own interval so dashboard numbers stay fresh between daily
// rollup runs.
func (wc *Context) SummaryWorkflow(ctx workflow.Context) (types.RunSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, wc.activityOptions(30*time.Minute))

	in := types.StepInput{AnalysisDate: analysisDateOf(ctx)}
	ac := wc.ActivityContext

	run := types.RunSummary{
		Workflow:     SummaryWorkflowName,
		AnalysisDate: in.AnalysisDate,
		Steps:        []types.StepResult{runStep(ctx, "precompute_summaries", ac.PrecomputeSummaries, in)},
	}

	if err := workflow.ExecuteActivity(ctx, ac.PublishRunCompleted, run).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish run event", "error", err)
	}

	return run, nil
}
