// Package types holds the workflow and activity payloads of the pipeline.
// Everything here crosses the Temporal wire, so fields are plain JSON types.
package types

// StepInput carries the analysis date into a pipeline activity.
type StepInput struct {
	// AnalysisDate is the UTC calendar date being processed, "2006-01-02".
	// Empty means "today", which only the ad-hoc trigger path uses.
	AnalysisDate string `json:"analysisDate"`
}

// StepOutput reports what one activity did.
type StepOutput struct {
	Processed  int64   `json:"processed"`
	Skipped    int64   `json:"skipped"`
	Errored    int64   `json:"errored"`
	DurationMs float64 `json:"durationMs"`
}

// StepResult is one workflow step's outcome as recorded in the run summary.
// A failed step keeps its name and error so the published event tells
// subscribers exactly what did not run.
type StepResult struct {
	Name       string  `json:"name"`
	Processed  int64   `json:"processed"`
	Skipped    int64   `json:"skipped"`
	Errored    int64   `json:"errored"`
	DurationMs float64 `json:"durationMs"`
	Failed     bool    `json:"failed"`
	Error      string  `json:"error,omitempty"`
}

// RunSummary is the payload published when a pipeline run finishes.
type RunSummary struct {
	Workflow     string       `json:"workflow"`
	AnalysisDate string       `json:"analysisDate"`
	Steps        []StepResult `json:"steps"`
}
