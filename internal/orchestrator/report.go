package orchestrator

import (
	"time"
)

// Outcome is the final status of a build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means every step ran but at least one exited non-zero.
	OutcomeFailed Outcome = "failed"
	// OutcomeAborted means the build stopped before the builder finished.
	OutcomeAborted Outcome = "aborted"
)

// BuildInfo describes the build being started, for reporting.
type BuildInfo struct {
	Builder  string // configured builder key, e.g. "basic"
	Engine   string
	RootFile string
	Revision string
}

// StepRecord captures one executed invocation.
type StepRecord struct {
	Index    int
	Tool     string
	Args     []string
	Dir      string
	ExitCode int
	Duration time.Duration
	Output   string
	Err      error
}

// Failed reports whether the invocation did not succeed.
func (r StepRecord) Failed() bool { return r.Err != nil || r.ExitCode != 0 }

// Report summarizes a build.
type Report struct {
	BuildID  string
	Info     BuildInfo
	Builder  string // human-readable builder name
	JobName  string
	TexDir   string
	Start    time.Time
	End      time.Time
	Steps    []StepRecord
	Messages []string
	// Diagnostics lists pattern names recognized in any step's output, in
	// first-seen order.
	Diagnostics []string
	Outcome     Outcome
	Err         error
}

// Duration returns the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// FailedSteps counts invocations that did not succeed.
func (r *Report) FailedSteps() int {
	n := 0
	for _, s := range r.Steps {
		if s.Failed() {
			n++
		}
	}
	return n
}

func (r *Report) addDiagnostic(name string) bool {
	for _, d := range r.Diagnostics {
		if d == name {
			return false
		}
	}
	r.Diagnostics = append(r.Diagnostics, name)
	return true
}

func (r *Report) finish(err error) {
	r.End = time.Now()
	r.Err = err
	switch {
	case err != nil:
		r.Outcome = OutcomeAborted
	case r.FailedSteps() > 0:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomeSuccess
	}
}
