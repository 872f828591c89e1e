// Package workflow orchestrates the pipeline runs. Workflows only sequence
// activities and collect their outcomes; every read, computation and write
// lives in the activity layer.
package workflow

import (
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/socialpulse/pulsex/pkg/pipeline/activity"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

// Workflow names as registered on the task queue; the schedule actions refer
// to these.
const (
	DailyRollupWorkflowName = "DailyRollupWorkflow"
	BackfillWorkflowName    = "BackfillWorkflow"
	SummaryWorkflowName     = "SummaryWorkflow"
)

type Context struct {
	ActivityContext *activity.Context
}

// activityOptions is the shared per-step policy: two attempts per step, then
// the step is recorded as failed and the run moves on.
func (wc *Context) activityOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
		TaskQueue: wc.ActivityContext.TemporalClient.PipelineQueue,
	}
}

// runStep executes one activity and folds its outcome into a StepResult. A
// step that exhausts its attempts is recorded as failed, never propagated:
// one broken step must not take down the rest of the run.
func runStep(ctx workflow.Context, name string, fn interface{}, in types.StepInput) types.StepResult {
	var out types.StepOutput
	err := workflow.ExecuteActivity(ctx, fn, in).Get(ctx, &out)

	result := types.StepResult{
		Name:       name,
		Processed:  out.Processed,
		Skipped:    out.Skipped,
		Errored:    out.Errored,
		DurationMs: out.DurationMs,
	}
	if err != nil {
		result.Failed = true
		result.Error = err.Error()
		workflow.GetLogger(ctx).Error("Pipeline step failed", "step", name, "error", err)
	}
	return result
}

// analysisDateOf derives the run's analysis date from deterministic workflow
// time.
func analysisDateOf(ctx workflow.Context) string {
	return workflow.Now(ctx).UTC().Format("2006-01-02")
}
