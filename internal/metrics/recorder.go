package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed" // non-zero exit, build continues
	ResultMissing  ResultLabel = "missing"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	OutcomeSuccess BuildOutcomeLabel = "success"
	OutcomeFailed  BuildOutcomeLabel = "failed"
	OutcomeAborted BuildOutcomeLabel = "aborted"
)

// Recorder defines observability hooks for build and step metrics. Implementations
// must be safe for nil receivers.
type Recorder interface {
	ObserveStepDuration(tool string, d time.Duration)
	IncStepResult(tool string, result ResultLabel)
	ObserveBuildDuration(builder string, d time.Duration)
	IncBuildOutcome(builder string, outcome BuildOutcomeLabel)
	IncDiagnostic(pattern string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration)  {}
func (NoopRecorder) IncStepResult(string, ResultLabel)          {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, BuildOutcomeLabel)  {}
func (NoopRecorder) IncDiagnostic(string)                       {}
